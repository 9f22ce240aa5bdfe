package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	cws "github.com/coder/websocket"

	"github.com/tunsel/tunsel/common"
)

// EventHandlers receives push notifications from the daemon's event
// stream. Nil handlers are skipped.
type EventHandlers struct {
	OnConnect    func(common.EventNotification)
	OnDisconnect func(common.EventNotification)
}

type pushMessage struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Listen follows the daemon's event stream until ctx is cancelled or
// the connection drops, dispatching each notification to its handler.
func (c *Client) Listen(ctx context.Context, h EventHandlers) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/events"
	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.secret},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect event stream: %w", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		var msg pushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		var note common.EventNotification
		if len(msg.Params) > 0 {
			if err := json.Unmarshal(msg.Params, &note); err != nil {
				continue
			}
		}
		switch msg.Method {
		case common.NotifyConnect:
			if h.OnConnect != nil {
				h.OnConnect(note)
			}
		case common.NotifyDisconnect:
			if h.OnDisconnect != nil {
				h.OnDisconnect(note)
			}
		}
	}
}
