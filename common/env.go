// Package common provides shared types and constants used across the tunsel
// client-daemon communication layer.
package common

// Environment variable names for configuration.
const (
	// ListenAddrEnv overrides the daemon control surface address.
	ListenAddrEnv = "TUNSEL_ADDR"

	// SecretEnv holds the bearer token for the RPC surface.
	// RPC is disabled when it is unset.
	SecretEnv = "TUNSEL_SECRET"

	// DataDirEnv overrides the daemon data directory.
	DataDirEnv = "TUNSEL_DATA_DIR"

	// SealKeyEnv holds the hex-encoded key used to seal stored credentials.
	// Credentials are persisted in the clear when it is unset.
	SealKeyEnv = "TUNSEL_SEAL_KEY"

	// TunnelCmdEnv overrides the tunnel client binary the daemon launches.
	TunnelCmdEnv = "TUNSEL_TUNNEL_CMD"
)
