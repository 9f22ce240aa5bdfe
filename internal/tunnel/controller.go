// Package tunnel defines the session controller the scheduler engine
// drives. The tunnel protocol itself lives in the external client binary;
// this package only starts and stops it.
package tunnel

// Controller starts and stops tunnel sessions. Both calls must be safe
// when no session is active, and must not block on the network: session
// success or failure is observed out of band, not returned here.
type Controller interface {
	// Start launches a session with the given config blob, profile
	// name, optional credentials and bypass identifiers.
	Start(config, profile, username, password string, bypass []string) error

	// Stop terminates the active session, if any.
	Stop() error
}
