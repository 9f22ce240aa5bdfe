package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cws "github.com/coder/websocket"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/internal/alarm"
	"github.com/tunsel/tunsel/internal/engine"
	"github.com/tunsel/tunsel/internal/event"
	"github.com/tunsel/tunsel/internal/store"
	"github.com/tunsel/tunsel/pkg/logger"
)

const testSecret = "server-test-secret-42"

type nullGateway struct{}

func (nullGateway) Arm(alarm.Kind, string, time.Time) {}
func (nullGateway) Cancel(alarm.Kind, string)         {}

type nullController struct {
	mu     sync.Mutex
	starts int
}

func (c *nullController) Start(config, profile, username, password string, bypass []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return nil
}

func (c *nullController) Stop() error { return nil }

func (c *nullController) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

// startTestServer brings up the full control surface on an httptest
// listener: real engine, in-memory store, live event bus and notifier.
func startTestServer(t *testing.T) (string, *engine.Engine, *nullController, func()) {
	t.Helper()

	st, err := store.Open(store.Options{InMemory: true, Logger: logger.NewNop()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	bus := event.NewBus(logger.NewNop())
	ctrl := &nullController{}
	eng := engine.New(engine.Config{
		Store:      st,
		Gateway:    nullGateway{},
		Controller: ctrl,
		Bus:        bus,
		Logger:     logger.NewNop(),
	})

	notifier := event.NewNotifier(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go notifier.Pump(ctx, bus)

	srv := New(Config{
		Addr:    "127.0.0.1:0",
		Secret:  testSecret,
		Version: "1.0.0-test",
		Commit:  "abc123",
	}, eng, notifier, logger.NewNop())

	httpSrv := httptest.NewServer(srv.handler())
	cleanup := func() {
		cancel()
		httpSrv.Close()
		srv.bridge.Close()
		st.Close()
	}
	return httpSrv.URL, eng, ctrl, cleanup
}

// rpcPost sends an authenticated JSON-RPC request and returns the HTTP
// status plus the decoded response envelope.
func rpcPost(t *testing.T, serverURL, method string, params any) (int, map[string]any) {
	t.Helper()
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		reqBody["params"] = params
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/jsonrpc", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testSecret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, envelope
}

func resultOf(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()
	if errObj, ok := envelope["error"]; ok {
		t.Fatalf("rpc error: %v", errObj)
	}
	res, ok := envelope["result"].(map[string]any)
	if !ok {
		t.Fatalf("result missing in %v", envelope)
	}
	return res
}

func TestUnauthorizedRequestRejected(t *testing.T) {
	serverURL, _, _, cleanup := startTestServer(t)
	defer cleanup()

	body := strings.NewReader(`{"jsonrpc":"2.0","method":"system.getVersion","id":1}`)
	resp, err := http.Post(serverURL+"/jsonrpc", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := envelope["error"]; !ok {
		t.Error("auth failure must carry a JSON-RPC error body")
	}
}

func TestGetVersion(t *testing.T) {
	serverURL, _, _, cleanup := startTestServer(t)
	defer cleanup()

	status, envelope := rpcPost(t, serverURL, common.MethodGetVersion, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	res := resultOf(t, envelope)
	if res["version"] != "1.0.0-test" || res["commit"] != "abc123" {
		t.Errorf("result = %v", res)
	}
}

func TestScheduleListCancelRoundTrip(t *testing.T) {
	serverURL, _, _, cleanup := startTestServer(t)
	defer cleanup()

	_, envelope := rpcPost(t, serverURL, common.MethodSchedule, common.ScheduleParams{
		Config:    "remote 1.2.3.4 1194",
		Profile:   "office",
		Password:  "hunter2",
		ConnectAt: time.Now().Add(time.Hour).UnixMilli(),
	})
	id, _ := resultOf(t, envelope)["id"].(string)
	if id == "" {
		t.Fatal("schedule returned no id")
	}

	_, envelope = rpcPost(t, serverURL, common.MethodList, nil)
	schedules, _ := resultOf(t, envelope)["schedules"].([]any)
	if len(schedules) != 1 {
		t.Fatalf("list returned %d schedules", len(schedules))
	}
	entry, _ := schedules[0].(map[string]any)
	if entry["id"] != id {
		t.Errorf("listed id = %v", entry["id"])
	}
	if _, leaked := entry["password"]; leaked {
		t.Error("list leaked the session password")
	}

	_, envelope = rpcPost(t, serverURL, common.MethodCancel, common.IDParam{ID: id})
	resultOf(t, envelope)

	_, envelope = rpcPost(t, serverURL, common.MethodList, nil)
	if schedules, _ := resultOf(t, envelope)["schedules"].([]any); len(schedules) != 0 {
		t.Errorf("list after cancel returned %d schedules", len(schedules))
	}
}

func TestScheduleValidation(t *testing.T) {
	serverURL, _, _, cleanup := startTestServer(t)
	defer cleanup()

	_, envelope := rpcPost(t, serverURL, common.MethodSchedule, common.ScheduleParams{
		ConnectAt: time.Now().Add(time.Hour).UnixMilli(),
	})
	if _, ok := envelope["error"]; !ok {
		t.Error("schedule without config must be rejected")
	}

	_, envelope = rpcPost(t, serverURL, common.MethodSchedule, common.ScheduleParams{
		Config: "remote 1.2.3.4 1194",
	})
	if _, ok := envelope["error"]; !ok {
		t.Error("schedule without connect_at must be rejected")
	}
}

func TestStartNowAndStatus(t *testing.T) {
	serverURL, _, ctrl, cleanup := startTestServer(t)
	defer cleanup()

	_, envelope := rpcPost(t, serverURL, common.MethodStartNow, common.ScheduleParams{
		Config:  "remote 1.2.3.4 1194",
		Profile: "office",
	})
	resultOf(t, envelope)
	if ctrl.startCount() != 1 {
		t.Fatalf("start count = %d", ctrl.startCount())
	}

	_, envelope = rpcPost(t, serverURL, common.MethodStatus, nil)
	res := resultOf(t, envelope)
	if res["connected"] != true || res["profile"] != "office" {
		t.Errorf("status = %v", res)
	}

	_, envelope = rpcPost(t, serverURL, common.MethodDisconnect, nil)
	resultOf(t, envelope)

	_, envelope = rpcPost(t, serverURL, common.MethodStatus, nil)
	res = resultOf(t, envelope)
	if res["connected"] != false || res["suppressed"] != true {
		t.Errorf("status after disconnect = %v", res)
	}
}

func TestEventsAuthRequired(t *testing.T) {
	serverURL, _, _, cleanup := startTestServer(t)
	defer cleanup()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/events"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := cws.Dial(ctx, wsURL, nil)
	if err == nil {
		t.Fatal("expected error for unauthorized WebSocket connection")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestEventsPushOnDisconnect(t *testing.T) {
	serverURL, eng, _, cleanup := startTestServer(t)
	defer cleanup()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/events"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + testSecret},
		},
	})
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	// The pump delivers asynchronously; give registration a moment
	// before producing the event.
	time.Sleep(100 * time.Millisecond)
	eng.Disconnect()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("WebSocket read failed: %v", err)
	}
	var note map[string]any
	if err := json.Unmarshal(data, &note); err != nil {
		t.Fatalf("unmarshal notification: %v", err)
	}
	if note["method"] != common.NotifyDisconnect {
		t.Errorf("notification method = %v", note["method"])
	}
}

func TestEventsChannelServesMethods(t *testing.T) {
	serverURL, _, _, cleanup := startTestServer(t)
	defer cleanup()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/events"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + testSecret},
		},
	})
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	req := map[string]any{"jsonrpc": "2.0", "method": common.MethodGetVersion, "id": 1}
	data, _ := json.Marshal(req)
	if err := conn.Write(ctx, cws.MessageText, data); err != nil {
		t.Fatalf("WebSocket write failed: %v", err)
	}
	_, respData, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("WebSocket read failed: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(respData, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	res, _ := resp["result"].(map[string]any)
	if res == nil || res["version"] != "1.0.0-test" {
		t.Errorf("response = %v", resp)
	}
}
