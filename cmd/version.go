package cmd

// Build-time variables, overridden by -ldflags.
var (
	version = "0.1.0"
	commit  = "unknown"
)
