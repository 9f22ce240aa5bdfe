package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tunsel/tunsel/common"
)

// newFakeDaemon mounts a canned JSON-RPC endpoint that records the last
// request body and answers from the results map keyed by method name.
func newFakeDaemon(t *testing.T, secret string, results map[string]any) (*Client, *map[string]any, func()) {
	t.Helper()

	lastBody := make(map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		for k := range lastBody {
			delete(lastBody, k)
		}
		for k, v := range body {
			lastBody[k] = v
		}

		if r.Header.Get("Authorization") != "Bearer "+secret {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"error":   map[string]any{"code": -32600, "message": "Unauthorized"},
				"id":      nil,
			})
			return
		}

		method, _ := body["method"].(string)
		result, ok := results[method]
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"error":   map[string]any{"code": -32601, "message": "method not found"},
				"id":      body["id"],
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"result":  result,
			"id":      body["id"],
		})
	}))

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), secret)
	return c, &lastBody, srv.Close
}

func TestVersion(t *testing.T) {
	c, body, cleanup := newFakeDaemon(t, "tok", map[string]any{
		common.MethodGetVersion: common.VersionResult{Version: "2.1.0", Commit: "deadbeef"},
	})
	defer cleanup()

	v, err := c.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Version != "2.1.0" || v.Commit != "deadbeef" {
		t.Errorf("version = %+v", v)
	}
	if (*body)["method"] != common.MethodGetVersion {
		t.Errorf("method = %v", (*body)["method"])
	}
}

func TestScheduleSendsParams(t *testing.T) {
	c, body, cleanup := newFakeDaemon(t, "tok", map[string]any{
		common.MethodSchedule: common.ScheduleResult{ID: "abc-123"},
	})
	defer cleanup()

	res, err := c.Schedule(&common.ScheduleParams{
		Config:    "remote 1.2.3.4 1194",
		Profile:   "office",
		ConnectAt: 1700000000000,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if res.ID != "abc-123" {
		t.Errorf("id = %q", res.ID)
	}
	params, _ := (*body)["params"].(map[string]any)
	if params["config"] != "remote 1.2.3.4 1194" || params["profile"] != "office" {
		t.Errorf("params = %v", params)
	}
}

func TestRPCErrorSurface(t *testing.T) {
	c, _, cleanup := newFakeDaemon(t, "tok", map[string]any{})
	defer cleanup()

	_, err := c.Status()
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error type = %T", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d", rpcErr.Code)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	c, _, cleanup := newFakeDaemon(t, "right", nil)
	defer cleanup()
	c.secret = "wrong"

	_, err := c.Version()
	if err == nil {
		t.Fatal("expected auth error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error type = %T", err)
	}
	if rpcErr.Message != "Unauthorized" {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

func TestCancelSendsID(t *testing.T) {
	c, body, cleanup := newFakeDaemon(t, "tok", map[string]any{
		common.MethodCancel: common.EmptyResult{},
	})
	defer cleanup()

	if err := c.Cancel("sched-9"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	params, _ := (*body)["params"].(map[string]any)
	if params["id"] != "sched-9" {
		t.Errorf("params = %v", params)
	}
}
