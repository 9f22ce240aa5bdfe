// Package schedule defines the persisted record describing when a tunnel
// session should start and, optionally, stop. Recurrence is weekly, driven
// by a 7-bit weekday mask anchored at the connect instant, or by an
// optional cron expression which takes precedence when set.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// DayMask is a 7-bit set of weekdays. Bit 0 is Sunday, bit 6 is Saturday.
type DayMask uint8

// DayBit returns the mask bit for the given weekday.
func DayBit(d time.Weekday) DayMask {
	return DayMask(1) << uint(d)
}

// Has reports whether the given weekday is set in the mask.
func (m DayMask) Has(d time.Weekday) bool {
	return m&DayBit(d) != 0
}

// Schedule describes one pending tunnel session. Times are milliseconds
// since the Unix epoch, UTC. DisconnectAt of zero means manual disconnect
// only. For recurring schedules ConnectAt is the anchor: it fixes the
// time of day and the date the weekday scan starts from.
type Schedule struct {
	ID           string   `json:"id"`
	Config       string   `json:"config"`
	Profile      string   `json:"profile,omitempty"`
	Username     string   `json:"username,omitempty"`
	Password     string   `json:"password,omitempty"`
	Bypass       []string `json:"bypass,omitempty"`
	ConnectAt    int64    `json:"connect_at"`
	DisconnectAt int64    `json:"disconnect_at,omitempty"`
	Active       bool     `json:"active"`
	Recurring    bool     `json:"recurring,omitempty"`
	Days         DayMask  `json:"days,omitempty"`
	CronExpr     string   `json:"cron_expr,omitempty"`
}

// New creates a one-shot schedule with a fresh id. The caller flips
// Recurring/Days/CronExpr afterwards for recurring variants.
func New(config, profile, username, password string, bypass []string, connectAt, disconnectAt int64) *Schedule {
	return &Schedule{
		ID:           uuid.NewString(),
		Config:       config,
		Profile:      profile,
		Username:     username,
		Password:     password,
		Bypass:       bypass,
		ConnectAt:    connectAt,
		DisconnectAt: disconnectAt,
		Active:       true,
	}
}

// NewAtClock builds a one-shot schedule from today's UTC clock times.
// A disconnect clock-time at or before the connect clock-time is taken to
// mean the following day. disconnectHour < 0 means manual disconnect.
func NewAtClock(config, profile, username, password string, bypass []string,
	connectHour, connectMinute, disconnectHour, disconnectMinute int, now time.Time) *Schedule {
	now = now.UTC()
	connect := time.Date(now.Year(), now.Month(), now.Day(), connectHour, connectMinute, 0, 0, time.UTC)
	var disconnectAt int64
	if disconnectHour >= 0 {
		disconnect := time.Date(now.Year(), now.Month(), now.Day(), disconnectHour, disconnectMinute, 0, 0, time.UTC)
		if !disconnect.After(connect) {
			disconnect = disconnect.AddDate(0, 0, 1)
		}
		disconnectAt = disconnect.UnixMilli()
	}
	return New(config, profile, username, password, bypass, connect.UnixMilli(), disconnectAt)
}

// ConnectTime returns the connect instant as a UTC time.
func (s *Schedule) ConnectTime() time.Time {
	return time.UnixMilli(s.ConnectAt).UTC()
}

// DisconnectTime returns the disconnect instant as a UTC time.
// Only meaningful when HasDisconnect reports true.
func (s *Schedule) DisconnectTime() time.Time {
	return time.UnixMilli(s.DisconnectAt).UTC()
}

// HasDisconnect reports whether the schedule carries a disconnect time.
func (s *Schedule) HasDisconnect() bool {
	return s.DisconnectAt > 0
}
