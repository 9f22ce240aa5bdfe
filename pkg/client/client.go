// Package client is the Go client for the daemon's JSON-RPC control
// surface. It wraps the HTTP endpoint with typed methods and can follow
// the WebSocket event stream.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tunsel/tunsel/common"
)

// Client talks to one daemon instance.
type Client struct {
	baseURL string
	secret  string
	hc      *http.Client
	nextID  atomic.Int64
}

// NewClient builds a client for the daemon at addr (host:port). The
// secret must match the daemon's configured token.
func NewClient(addr, secret string) *Client {
	if addr == "" {
		addr = common.DefaultListenAddr
	}
	return &Client{
		baseURL: "http://" + addr,
		secret:  secret,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error returned by the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) invoke(method string, params any) (json.RawMessage, error) {
	buf, err := json.Marshal(&rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", method, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/jsonrpc", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	defer resp.Body.Close()

	var res rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to invoke %s: status %d", method, resp.StatusCode)
	}
	return res.Result, nil
}
