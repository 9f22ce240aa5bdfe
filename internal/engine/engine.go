// Package engine orchestrates scheduled tunnel sessions: it owns the
// schedule set, drives the timer gateway, and reacts to timer fires by
// starting or stopping the session controller.
//
// Every operation is serialized under one mutex and derives its state
// from the store and the gateway alone, so a fire landing in a freshly
// restarted daemon behaves the same as one landing in a long-running one.
package engine

import (
	"sync"
	"time"

	"github.com/tunsel/tunsel/internal/alarm"
	"github.com/tunsel/tunsel/internal/event"
	"github.com/tunsel/tunsel/internal/tunnel"
	"github.com/tunsel/tunsel/pkg/logger"
	"github.com/tunsel/tunsel/pkg/schedule"
)

// Gateway is the timer facility the engine arms and cancels.
type Gateway interface {
	Arm(kind alarm.Kind, scheduleID string, at time.Time)
	Cancel(kind alarm.Kind, scheduleID string)
}

// Store is the durable schedule set.
type Store interface {
	Save(*schedule.Schedule) error
	Get(id string) (*schedule.Schedule, error)
	Remove(id string) error
	List() ([]*schedule.Schedule, error)
}

// Request carries the parameters of one schedule call. Times are
// milliseconds since the Unix epoch, UTC.
type Request struct {
	Config       string
	Profile      string
	Username     string
	Password     string
	Bypass       []string
	ConnectAt    int64
	DisconnectAt int64
	Recurring    bool
	Days         schedule.DayMask
	CronExpr     string
}

// Status is a snapshot of the engine's session state.
type Status struct {
	Connected  bool
	Profile    string
	Since      time.Time
	Suppressed bool
	Pending    int
}

// session replaces the upstream process-wide connected flag with state
// owned by the engine and read through accessors.
type session struct {
	active  bool
	profile string
	since   time.Time
}

// Config wires an Engine.
type Config struct {
	Store      Store
	Gateway    Gateway
	Controller tunnel.Controller
	Bus        *event.Bus
	Logger     logger.Logger

	// Now overrides the clock; nil means time.Now. Tests use it.
	Now func() time.Time

	// OnIdle is invoked whenever a mutating operation leaves the store
	// empty: the hosting process may release its presence. May be nil.
	OnIdle func()
}

// Engine is the scheduler orchestrator.
type Engine struct {
	mu     sync.Mutex
	store  Store
	gw     Gateway
	ctrl   tunnel.Controller
	bus    *event.Bus
	log    logger.Logger
	now    func() time.Time
	onIdle func()

	suppressed bool
	sess       session
}

// New creates an engine. Store, Gateway, Controller and Bus are required.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:  cfg.Store,
		gw:     cfg.Gateway,
		ctrl:   cfg.Controller,
		bus:    cfg.Bus,
		log:    cfg.Logger,
		now:    cfg.Now,
		onIdle: cfg.OnIdle,
	}
}

// Schedule persists a new schedule and arms its connect timer. A connect
// instant that has already passed fires synchronously instead of arming,
// so a request whose time elapsed in transit is not lost; on that path a
// disconnect timer is armed only when the disconnect instant is still in
// the future.
func (e *Engine) Schedule(req Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := schedule.New(req.Config, req.Profile, req.Username, req.Password,
		req.Bypass, req.ConnectAt, req.DisconnectAt)
	s.Recurring = req.Recurring
	s.Days = req.Days
	s.CronExpr = req.CronExpr

	if err := e.store.Save(s); err != nil {
		return "", err
	}

	now := e.now()
	at := s.NextOccurrence(now)
	if !at.After(now) {
		e.log.Info("engine: schedule %s is due, firing now", s.ID)
		e.connectFiredLocked(s.ID, true)
	} else {
		e.gw.Arm(alarm.KindConnect, s.ID, at)
		e.log.Info("engine: schedule %s armed for %v", s.ID, at)
	}
	return s.ID, nil
}

// StartNow launches a session immediately without creating a stored
// schedule, mirroring an unscheduled connect request from the host.
func (e *Engine) StartNow(req Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.suppressed = false
	e.bus.Publish(event.Event{Type: event.Connect, Profile: req.Profile, At: now})
	if err := e.ctrl.Start(req.Config, req.Profile, req.Username, req.Password, req.Bypass); err != nil {
		e.log.Error("engine: start session: %v", err)
		return err
	}
	e.sess = session{active: true, profile: req.Profile, since: now}
	return nil
}

// Cancel removes a schedule and both of its timers. Cancelling an
// unknown id is a no-op.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked(id)
	e.idleCheckLocked()
	return nil
}

// CancelAll removes every stored schedule.
func (e *Engine) CancelAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearAllLocked()
	e.idleCheckLocked()
	return nil
}

// List returns the current schedule set.
func (e *Engine) List() ([]*schedule.Schedule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.List()
}

// IsSessionActive reports whether the engine considers a session up.
func (e *Engine) IsSessionActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.active
}

// Suppressed reports whether the last disconnect was scheduler-driven.
// The host polls it to tell scheduler state changes from user ones.
func (e *Engine) Suppressed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suppressed
}

// Status returns a snapshot of session and schedule state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	pending := 0
	if lst, err := e.store.List(); err == nil {
		pending = len(lst)
	}
	return Status{
		Connected:  e.sess.active,
		Profile:    e.sess.profile,
		Since:      e.sess.since,
		Suppressed: e.suppressed,
		Pending:    pending,
	}
}

// cancelLocked drops both timers and the stored record for id.
func (e *Engine) cancelLocked(id string) {
	e.gw.Cancel(alarm.KindConnect, id)
	e.gw.Cancel(alarm.KindDisconnect, id)
	if err := e.store.Remove(id); err != nil {
		e.log.Error("engine: remove schedule %s: %v", id, err)
	}
}

// clearAllLocked cancels every stored schedule.
func (e *Engine) clearAllLocked() {
	lst, err := e.store.List()
	if err != nil {
		e.log.Error("engine: list schedules: %v", err)
		return
	}
	for _, s := range lst {
		e.cancelLocked(s.ID)
	}
}

// idleCheckLocked releases the hosting process's presence when the store
// is observably empty. It runs under the engine mutex, so a schedule
// added concurrently cannot be lost to the check.
func (e *Engine) idleCheckLocked() {
	lst, err := e.store.List()
	if err != nil || len(lst) > 0 {
		return
	}
	e.log.Info("engine: no schedules pending, releasing presence")
	if e.onIdle != nil {
		e.onIdle()
	}
}
