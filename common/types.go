package common

import "github.com/tunsel/tunsel/pkg/schedule"

// ScheduleParams is the input for session.schedule and session.startNow.
// Times are milliseconds since the Unix epoch, UTC.
type ScheduleParams struct {
	Config       string   `json:"config"`
	Profile      string   `json:"profile,omitempty"`
	Username     string   `json:"username,omitempty"`
	Password     string   `json:"password,omitempty"`
	Bypass       []string `json:"bypass,omitempty"`
	ConnectAt    int64    `json:"connect_at"`
	DisconnectAt int64    `json:"disconnect_at,omitempty"`
	Recurring    bool     `json:"recurring,omitempty"`
	Days         uint8    `json:"days,omitempty"`
	CronExpr     string   `json:"cron_expr,omitempty"`
}

// ScheduleResult is the response for session.schedule.
type ScheduleResult struct {
	ID string `json:"id"`
}

// IDParam is a common input carrying just a schedule id.
type IDParam struct {
	ID string `json:"id"`
}

// ListResult is the response for session.list.
type ListResult struct {
	Schedules []*schedule.Schedule `json:"schedules"`
}

// StatusResult is the response for session.status.
type StatusResult struct {
	Connected  bool   `json:"connected"`
	Profile    string `json:"profile,omitempty"`
	Since      int64  `json:"since,omitempty"`
	Suppressed bool   `json:"suppressed"`
	Pending    int    `json:"pending"`
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// EventNotification is the payload of event.connect and event.disconnect
// push notifications.
type EventNotification struct {
	ScheduleID string `json:"schedule_id,omitempty"`
	Profile    string `json:"profile,omitempty"`
	At         int64  `json:"at"`
}
