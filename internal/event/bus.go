// Package event carries the scheduler's lifecycle events to the host:
// an in-process typed bus for embedded consumers and a push registry
// broadcasting to connected RPC clients.
package event

import (
	"sync"
	"time"

	"github.com/tunsel/tunsel/pkg/logger"
)

// Type labels a lifecycle event.
type Type string

const (
	Connect    Type = "connect"
	Disconnect Type = "disconnect"
)

// Event is one scheduler-driven lifecycle change.
type Event struct {
	Type       Type
	ScheduleID string
	Profile    string
	At         time.Time
}

// subscriber buffer; a consumer this far behind starts losing events.
const subBuffer = 16

// Bus fans events out to subscriber channels. Delivery is in order per
// subscriber; a full subscriber drops the event with a warning rather
// than blocking the engine.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
	log  logger.Logger
}

// NewBus creates an empty bus.
func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{subs: make(map[int]chan Event), log: log}
}

// Subscribe registers a consumer. The returned cancel func releases the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subBuffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warning("event: subscriber %d full, dropping %s", id, ev.Type)
		}
	}
}
