package server

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/internal/engine"
	"github.com/tunsel/tunsel/pkg/schedule"
)

// Custom JSON-RPC error codes for session operations.
const (
	codeInvalidParams = jrpc2.Code(-32602)
	codeInternal      = jrpc2.Code(-32603)
)

// rpcHandler maps the session.* JSON-RPC methods onto the engine.
type rpcHandler struct {
	eng     *engine.Engine
	version string
	commit  string
}

func newRPCHandler(eng *engine.Engine, version, commit string) *rpcHandler {
	return &rpcHandler{eng: eng, version: version, commit: commit}
}

// methods builds the dispatch map served over both the HTTP bridge and
// the WebSocket event stream.
func (h *rpcHandler) methods() handler.Map {
	return handler.Map{
		common.MethodGetVersion: handler.New(h.getVersion),
		common.MethodSchedule:   handler.New(h.schedule),
		common.MethodStartNow:   handler.New(h.startNow),
		common.MethodCancel:     handler.New(h.cancel),
		common.MethodCancelAll:  handler.New(h.cancelAll),
		common.MethodList:       handler.New(h.list),
		common.MethodStatus:     handler.New(h.status),
		common.MethodDisconnect: handler.New(h.disconnect),
	}
}

// bridge wraps the method map in an HTTP POST endpoint.
func (h *rpcHandler) bridge() jhttp.Bridge {
	return jhttp.NewBridge(h.methods(), nil)
}

func (h *rpcHandler) getVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{Version: h.version, Commit: h.commit}, nil
}

func requestFromParams(p *common.ScheduleParams) engine.Request {
	return engine.Request{
		Config:       p.Config,
		Profile:      p.Profile,
		Username:     p.Username,
		Password:     p.Password,
		Bypass:       p.Bypass,
		ConnectAt:    p.ConnectAt,
		DisconnectAt: p.DisconnectAt,
		Recurring:    p.Recurring,
		Days:         schedule.DayMask(p.Days),
		CronExpr:     p.CronExpr,
	}
}

// schedule registers a new session schedule.
func (h *rpcHandler) schedule(_ context.Context, p *common.ScheduleParams) (*common.ScheduleResult, error) {
	if p.Config == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: config"}
	}
	if p.ConnectAt <= 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: connect_at"}
	}
	id, err := h.eng.Schedule(requestFromParams(p))
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
	return &common.ScheduleResult{ID: id}, nil
}

// startNow launches a session immediately, without persisting a schedule.
func (h *rpcHandler) startNow(_ context.Context, p *common.ScheduleParams) (*common.EmptyResult, error) {
	if p.Config == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: config"}
	}
	if err := h.eng.StartNow(requestFromParams(p)); err != nil {
		return nil, &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
	return &common.EmptyResult{}, nil
}

// cancel removes one schedule. Unknown ids succeed.
func (h *rpcHandler) cancel(_ context.Context, p *common.IDParam) (*common.EmptyResult, error) {
	if p.ID == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: id"}
	}
	if err := h.eng.Cancel(p.ID); err != nil {
		return nil, &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
	return &common.EmptyResult{}, nil
}

func (h *rpcHandler) cancelAll(_ context.Context) (*common.EmptyResult, error) {
	if err := h.eng.CancelAll(); err != nil {
		return nil, &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
	return &common.EmptyResult{}, nil
}

// list returns the stored schedules with credentials redacted.
func (h *rpcHandler) list(_ context.Context) (*common.ListResult, error) {
	schedules, err := h.eng.List()
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
	out := make([]*schedule.Schedule, 0, len(schedules))
	for _, s := range schedules {
		c := *s
		c.Password = ""
		out = append(out, &c)
	}
	return &common.ListResult{Schedules: out}, nil
}

func (h *rpcHandler) status(_ context.Context) (*common.StatusResult, error) {
	st := h.eng.Status()
	res := &common.StatusResult{
		Connected:  st.Connected,
		Profile:    st.Profile,
		Suppressed: st.Suppressed,
		Pending:    st.Pending,
	}
	if !st.Since.IsZero() {
		res.Since = st.Since.UnixMilli()
	}
	return res, nil
}

// disconnect tears down the running session and clears every schedule.
func (h *rpcHandler) disconnect(_ context.Context) (*common.EmptyResult, error) {
	h.eng.Disconnect()
	return &common.EmptyResult{}, nil
}
