package engine

import (
	"github.com/tunsel/tunsel/internal/alarm"
	"github.com/tunsel/tunsel/internal/event"
)

// OnConnectFired handles a connect timer fire. Wired as the gateway's
// fire callback for KindConnect.
func (e *Engine) OnConnectFired(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectFiredLocked(id, false)
}

// OnDisconnectFired handles a disconnect timer fire. Wired as the
// gateway's fire callback for KindDisconnect.
func (e *Engine) OnDisconnectFired(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnectLocked(id)
}

// Disconnect is the manual (non-timer) disconnect path. It follows the
// same suppression/notify/clear-all sequence as a fired disconnect but
// stops the session directly, and succeeds even when no session runs.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnectLocked("")
}

// connectFiredLocked runs the connect trigger for id. fromRequest marks
// the synchronous path out of Schedule, where a disconnect instant
// already in the past is skipped instead of armed.
func (e *Engine) connectFiredLocked(id string, fromRequest bool) {
	now := e.now()

	s, err := e.store.Get(id)
	if err != nil {
		// Timer outlived its schedule; not fatal.
		e.log.Warning("engine: connect fired for unknown schedule %s", id)
		return
	}
	if !s.Active {
		e.log.Info("engine: schedule %s is inactive, ignoring fire", id)
		return
	}

	e.suppressed = false
	e.bus.Publish(event.Event{Type: event.Connect, ScheduleID: s.ID, Profile: s.Profile, At: now})

	if s.Config == "" {
		e.log.Error("engine: schedule %s has no tunnel config, not starting", id)
		return
	}

	// At most one engine-driven session: every other schedule goes,
	// without disturbing this id's own disconnect arm.
	if others, err := e.store.List(); err == nil {
		for _, o := range others {
			if o.ID == id {
				continue
			}
			e.cancelLocked(o.ID)
		}
	}

	if err := e.ctrl.Start(s.Config, s.Profile, s.Username, s.Password, s.Bypass); err != nil {
		// Session outcome is reported through the notifier channel,
		// not awaited here.
		e.log.Error("engine: start session for %s: %v", id, err)
	}
	e.sess = session{active: true, profile: s.Profile, since: now}

	armed := false
	if s.HasDisconnect() {
		at := s.DisconnectTime()
		if !fromRequest || at.After(now) {
			e.gw.Arm(alarm.KindDisconnect, s.ID, at)
			armed = true
		}
	}

	switch {
	case armed:
		// Armed-disconnect: the record stays until the disconnect fires.
	case s.Recurring:
		next := s.NextOccurrence(now)
		if next.After(now) {
			e.gw.Arm(alarm.KindConnect, s.ID, next)
			e.log.Info("engine: schedule %s re-armed for %v", s.ID, next)
		} else {
			// Degenerate recurrence: park rather than loop.
			e.log.Warning("engine: schedule %s has no future occurrence, parking it", s.ID)
		}
	default:
		// One-shot, manual disconnect only: terminal.
		if err := e.store.Remove(s.ID); err != nil {
			e.log.Error("engine: remove fired schedule %s: %v", s.ID, err)
		}
		e.idleCheckLocked()
	}
}

// disconnectLocked runs the disconnect sequence. id is empty on the
// manual path.
func (e *Engine) disconnectLocked(id string) {
	now := e.now()

	e.suppressed = true
	ev := event.Event{Type: event.Disconnect, ScheduleID: id, Profile: e.sess.profile, At: now}
	if id != "" {
		if s, err := e.store.Get(id); err == nil {
			ev.Profile = s.Profile
		}
	}
	e.bus.Publish(ev)

	// A failing stop must not leave the schedule set behind to retry a
	// broken teardown.
	if err := e.ctrl.Stop(); err != nil {
		e.log.Error("engine: stop session: %v", err)
	}
	e.sess = session{}

	e.clearAllLocked()
	e.idleCheckLocked()
}

// Reconcile rebuilds timer state from the store after a daemon start.
// It classifies what happened while the process was down: expired
// windows are cleaned up, narrowly missed connects fire now, everything
// else is re-armed. Run after the gateway restores its registrations.
func (e *Engine) Reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	schedules, err := e.store.List()
	if err != nil {
		e.log.Error("engine: reconcile list: %v", err)
		return
	}
	for _, s := range schedules {
		if !s.Active {
			continue
		}
		// A fire earlier in the sweep may have cleared this record.
		if _, err := e.store.Get(s.ID); err != nil {
			continue
		}
		if s.DisconnectDue(now) {
			// The whole activation window passed while we were down.
			if s.Recurring {
				if next := s.NextOccurrence(now); next.After(now) {
					e.gw.Arm(alarm.KindConnect, s.ID, next)
					continue
				}
			}
			e.log.Info("engine: schedule %s expired while down, removing", s.ID)
			e.cancelLocked(s.ID)
			continue
		}
		next := s.NextOccurrence(now)
		if next.After(now) {
			e.gw.Arm(alarm.KindConnect, s.ID, next)
			continue
		}
		if s.InConnectWindow(now) || s.HasDisconnect() {
			// Missed narrowly, or a pending disconnect still bounds the
			// session: fire late rather than drop.
			e.connectFiredLocked(s.ID, false)
			continue
		}
		e.log.Warning("engine: schedule %s missed its window while down, removing", s.ID)
		e.cancelLocked(s.ID)
	}
	e.idleCheckLocked()
}
