package event

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/tunsel/tunsel/pkg/logger"
)

func TestBusFanOut(t *testing.T) {
	b := NewBus(logger.NewNop())
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	ev := Event{Type: Connect, ScheduleID: "s1", Profile: "office", At: time.Now()}
	b.Publish(ev)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Type != Connect || got.ScheduleID != "s1" {
				t.Errorf("subscriber %d got %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	b := NewBus(logger.NewNop())
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // repeat is safe

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
	b.Publish(Event{Type: Disconnect}) // must not panic or block
}

func TestBusFullSubscriberDoesNotBlock(t *testing.T) {
	rec := logger.NewRecorder()
	b := NewBus(rec)
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subBuffer+5; i++ {
			b.Publish(Event{Type: Connect})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(rec.Warnings) == 0 {
		t.Error("expected drop warnings")
	}
}

// newPushServer builds a jrpc2 server with push enabled over an io.Pipe
// channel. The returned client channel must be drained by the caller.
func newPushServer(t *testing.T) (channel.Channel, *jrpc2.Server, func()) {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()
	cli := channel.Line(cr, cw)
	srvCh := channel.Line(sr, sw)

	srv := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(srvCh)
	return cli, srv, func() {
		cli.Close()
		_ = srv.Wait()
	}
}

func TestNotifierBroadcast(t *testing.T) {
	n := NewNotifier(logger.NewNop())
	cli, srv, cleanup := newPushServer(t)
	defer cleanup()

	n.Register(srv)
	if n.Count() != 1 {
		t.Fatalf("Count = %d", n.Count())
	}

	got := make(chan []byte, 1)
	go func() {
		data, err := cli.Recv()
		if err == nil {
			got <- data
		}
	}()

	n.Broadcast("event.connect", map[string]string{"schedule_id": "s1"})

	select {
	case data := <-got:
		var msg struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode push: %v", err)
		}
		if msg.Method != "event.connect" {
			t.Errorf("method = %q", msg.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no push received")
	}

	n.Unregister(srv)
	if n.Count() != 0 {
		t.Errorf("Count after unregister = %d", n.Count())
	}
}

func TestNotifierDropsFailedServer(t *testing.T) {
	n := NewNotifier(logger.NewNop())
	cli, srv, _ := newPushServer(t)

	n.Register(srv)
	cli.Close()
	_ = srv.Wait()

	n.Broadcast("event.disconnect", nil)
	if n.Count() != 0 {
		t.Errorf("dead server not dropped, Count = %d", n.Count())
	}
}
