package common

// JSON-RPC method names exposed by the daemon control surface.
const (
	MethodGetVersion = "system.getVersion"

	MethodSchedule   = "session.schedule"
	MethodStartNow   = "session.startNow"
	MethodCancel     = "session.cancel"
	MethodCancelAll  = "session.cancelAll"
	MethodList       = "session.list"
	MethodStatus     = "session.status"
	MethodDisconnect = "session.disconnect"
)

// Push notification method names delivered over the event stream.
const (
	NotifyConnect    = "event.connect"
	NotifyDisconnect = "event.disconnect"
)

// DefaultListenAddr is the loopback address the daemon binds its control
// surface to when no address is configured.
const DefaultListenAddr = "127.0.0.1:3727"
