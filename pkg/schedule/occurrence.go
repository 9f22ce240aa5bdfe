package schedule

import (
	"time"

	"github.com/adhocore/gronx"
)

// triggerWindow is the tolerance applied by the reconciliation window
// checks. It is never consulted on the timer-driven path.
const triggerWindow = 60 * time.Second

// NextOccurrence returns the next instant the schedule should connect.
//
// One-shot schedules return the connect instant unchanged. Recurring
// schedules return it unchanged while it is still in the future (first
// occurrence not yet consumed); afterwards the seven candidate days
// anchor+0..anchor+6 are scanned in UTC calendar order and the earliest
// candidate whose weekday is in the mask and which lies strictly after
// now wins. When no candidate qualifies (degenerate mask) the original
// connect instant is returned, which may be in the past: callers treat a
// result at or before now as fire-immediately and must not rescan.
//
// A cron expression, when present on a recurring schedule, replaces the
// weekday scan entirely.
func (s *Schedule) NextOccurrence(now time.Time) time.Time {
	connect := s.ConnectTime()
	if !s.Recurring {
		return connect
	}
	if s.CronExpr != "" {
		next, err := gronx.NextTickAfter(s.CronExpr, now, false)
		if err != nil {
			return connect
		}
		return next
	}
	if connect.After(now) {
		return connect
	}
	for i := 0; i < 7; i++ {
		candidate := connect.AddDate(0, 0, i)
		if s.Days.Has(candidate.Weekday()) && candidate.After(now) {
			return candidate
		}
	}
	return connect
}

// InConnectWindow reports whether now lies within the trigger tolerance
// of the connect instant. Inactive schedules are never in window. For
// recurring schedules the weekday of now must additionally be in the
// mask. This is a consistency aid for the startup reconciliation sweep.
func (s *Schedule) InConnectWindow(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.Recurring && s.CronExpr == "" && !s.Days.Has(now.UTC().Weekday()) {
		return false
	}
	diff := now.Sub(s.ConnectTime())
	if diff < 0 {
		diff = -diff
	}
	return diff <= triggerWindow
}

// DisconnectDue reports whether the disconnect instant has been reached.
// Always false for inactive schedules and schedules without a disconnect
// time.
func (s *Schedule) DisconnectDue(now time.Time) bool {
	if !s.Active || !s.HasDisconnect() {
		return false
	}
	return !now.Before(s.DisconnectTime())
}
