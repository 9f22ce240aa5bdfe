// Package alarm implements the daemon's timer gateway: arm and cancel of
// future callbacks keyed by deterministic (kind, schedule id) codes.
//
// A single goroutine owns a min-heap of registrations and sleeps until the
// earliest fire time, with a 60-second max-sleep-cap so NTP steps, DST
// transitions, and host sleep cannot strand the loop. Armed registrations
// are persisted through a RegistrationStore so a restarted daemon can
// re-arm everything that was pending; fires are best-effort exact and may
// land late under OS power policy, which callers must tolerate.
package alarm

import (
	"container/heap"
	"context"
	"time"

	"github.com/tunsel/tunsel/pkg/logger"
)

const maxSleepCap = 60 * time.Second

// FireFunc is invoked when a timer fires.
type FireFunc func(kind Kind, scheduleID string)

// Gateway arms and cancels wake timers for the scheduler engine.
type Gateway struct {
	armCh    chan Registration
	cancelCh chan int64
	ctx      context.Context
	regs     RegistrationStore
	onFire   FireFunc
	log      logger.Logger
}

// New creates and starts a gateway. The onFire callback runs on its own
// goroutine, never the gateway's, so it may arm and cancel timers freely;
// it must re-acquire its own serialization. The gateway goroutine exits
// when ctx is cancelled.
func New(ctx context.Context, regs RegistrationStore, onFire FireFunc, log logger.Logger) *Gateway {
	g := &Gateway{
		armCh:    make(chan Registration, 64),
		cancelCh: make(chan int64, 64),
		ctx:      ctx,
		regs:     regs,
		onFire:   onFire,
		log:      log,
	}
	go g.run()
	return g
}

// Arm schedules exactly one future invocation of the fire callback for
// (kind, scheduleID). Re-arming the same pair replaces the pending timer.
// An instant at or in the past fires on the next loop turn. Persistence
// failures are logged, not fatal: the in-memory timer still arms, and the
// next explicit re-arm is the recovery path.
func (g *Gateway) Arm(kind Kind, scheduleID string, at time.Time) {
	r := Registration{
		Code:       Code(kind, scheduleID),
		Kind:       kind,
		ScheduleID: scheduleID,
		At:         at.UnixMilli(),
	}
	if err := g.regs.PutRegistration(r); err != nil {
		g.log.Error("alarm: persist registration %d: %v", r.Code, err)
	}
	select {
	case g.armCh <- r:
	case <-g.ctx.Done():
	}
}

// Cancel removes the pending timer for (kind, scheduleID) if present.
// Cancelling an unarmed pair is a no-op.
func (g *Gateway) Cancel(kind Kind, scheduleID string) {
	code := Code(kind, scheduleID)
	if err := g.regs.DeleteRegistration(code); err != nil {
		g.log.Error("alarm: delete registration %d: %v", code, err)
	}
	select {
	case g.cancelCh <- code:
	case <-g.ctx.Done():
	}
}

// Restore re-arms every persisted registration. Called once at daemon
// start, before the engine's reconciliation sweep. Registrations whose
// fire time passed while the daemon was down fire immediately.
func (g *Gateway) Restore() error {
	regs, err := g.regs.Registrations()
	if err != nil {
		return err
	}
	for _, r := range regs {
		select {
		case g.armCh <- r:
		case <-g.ctx.Done():
			return g.ctx.Err()
		}
	}
	if len(regs) > 0 {
		g.log.Info("alarm: restored %d registration(s)", len(regs))
	}
	return nil
}

// run owns the heap. Arm requests replace any pending registration with
// the same code before pushing, and due registrations are drained in one
// pass so a late wakeup fires everything it owes.
func (g *Gateway) run() {
	h := &alarmHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].Time())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-g.ctx.Done():
			return

		case r := <-g.armCh:
			heapRemoveByCode(h, r.Code)
			heapPush(h, r)
			timerCh = resetTimer()

		case code := <-g.cancelCh:
			heapRemoveByCode(h, code)
			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()
			var due []Registration
			for h.Len() > 0 && !(*h)[0].Time().After(now) {
				r := heapPop(h)
				if err := g.regs.DeleteRegistration(r.Code); err != nil {
					g.log.Error("alarm: clear fired registration %d: %v", r.Code, err)
				}
				due = append(due, r)
			}
			// Handlers arm and cancel right back into this loop, so they
			// must not run on it: a handler blocked on a full cancelCh
			// would deadlock the loop that drains it. One goroutine per
			// batch keeps fires of the same wakeup in order.
			if len(due) > 0 {
				go func(batch []Registration) {
					for _, r := range batch {
						g.onFire(r.Kind, r.ScheduleID)
					}
				}(due)
			}
			timerCh = resetTimer()
		}
	}
}
