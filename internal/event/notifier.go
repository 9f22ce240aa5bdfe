package event

import (
	"context"
	"sync"

	"github.com/creachadair/jrpc2"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/pkg/logger"
)

// Notifier keeps the set of connected jrpc2 servers (one per event-stream
// client) and pushes lifecycle notifications to all of them. Servers that
// fail a push are dropped from the set.
type Notifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
}

// NewNotifier creates an empty notifier.
func NewNotifier(log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &Notifier{servers: make(map[*jrpc2.Server]struct{}), log: log}
}

// Register adds a connected client's server to the broadcast set.
func (n *Notifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

// Unregister removes a server from the broadcast set.
func (n *Notifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Count returns the number of registered servers.
func (n *Notifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// Broadcast pushes one notification to every registered server.
func (n *Notifier) Broadcast(method string, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(context.Background(), method, params); err != nil {
			n.log.Warning("event: push failed, dropping client: %v", err)
			failed = append(failed, srv)
		}
	}
	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Pump subscribes to the bus and forwards every event as a push
// notification until ctx is cancelled. Run it on its own goroutine.
func (n *Notifier) Pump(ctx context.Context, bus *Bus) {
	events, cancel := bus.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			method := common.NotifyConnect
			if ev.Type == Disconnect {
				method = common.NotifyDisconnect
			}
			n.Broadcast(method, &common.EventNotification{
				ScheduleID: ev.ScheduleID,
				Profile:    ev.Profile,
				At:         ev.At.UnixMilli(),
			})
		}
	}
}
