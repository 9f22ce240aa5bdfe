package client

import (
	"encoding/json"

	"github.com/tunsel/tunsel/common"
)

func invoke[T any](c *Client, method string, params any) (*T, error) {
	raw, err := c.invoke(method, params)
	if err != nil {
		return nil, err
	}
	var d T
	return &d, json.Unmarshal(raw, &d)
}

// Version returns the daemon's version information.
func (c *Client) Version() (*common.VersionResult, error) {
	return invoke[common.VersionResult](c, common.MethodGetVersion, nil)
}

// Schedule registers a session schedule and returns its id.
func (c *Client) Schedule(params *common.ScheduleParams) (*common.ScheduleResult, error) {
	return invoke[common.ScheduleResult](c, common.MethodSchedule, params)
}

// StartNow launches a session immediately.
func (c *Client) StartNow(params *common.ScheduleParams) error {
	_, err := invoke[common.EmptyResult](c, common.MethodStartNow, params)
	return err
}

// Cancel removes the schedule with the given id. Unknown ids succeed.
func (c *Client) Cancel(id string) error {
	_, err := invoke[common.EmptyResult](c, common.MethodCancel, &common.IDParam{ID: id})
	return err
}

// CancelAll removes every stored schedule.
func (c *Client) CancelAll() error {
	_, err := invoke[common.EmptyResult](c, common.MethodCancelAll, nil)
	return err
}

// List returns the stored schedules. Credentials are redacted by the
// daemon.
func (c *Client) List() (*common.ListResult, error) {
	return invoke[common.ListResult](c, common.MethodList, nil)
}

// Status returns a snapshot of the daemon's session state.
func (c *Client) Status() (*common.StatusResult, error) {
	return invoke[common.StatusResult](c, common.MethodStatus, nil)
}

// Disconnect stops the running session and clears all schedules.
func (c *Client) Disconnect() error {
	_, err := invoke[common.EmptyResult](c, common.MethodDisconnect, nil)
	return err
}
