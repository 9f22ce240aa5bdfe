package server

import (
	"context"
	"net/http"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
)

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel
// interface. Each WebSocket connection gets one wsChannel bridging
// read/write between the transport and its jrpc2 server.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

var _ channel.Channel = (*wsChannel)(nil)

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// serveEvents upgrades the request to a WebSocket and runs a jrpc2
// server on it with push enabled. While the connection lives it is
// registered with the notifier, so session events reach the client as
// JSON-RPC notifications; the same method map stays callable over it.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Warning("server: websocket accept: %v", err)
		return
	}

	ctx := r.Context()
	ch := &wsChannel{conn: conn, ctx: ctx}
	srv := jrpc2.NewServer(s.rpc.methods(), &jrpc2.ServerOptions{
		AllowPush: true,
	})
	srv.Start(ch)

	s.notifier.Register(srv)
	defer s.notifier.Unregister(srv)

	// Block until the client goes away or the listener shuts down.
	select {
	case <-ctx.Done():
		srv.Stop()
	case <-srvDone(srv):
	}
}

func srvDone(srv *jrpc2.Server) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = srv.Wait()
		close(done)
	}()
	return done
}
