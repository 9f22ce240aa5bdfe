//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// isProcessRunning checks process liveness with signal 0, which probes
// existence without delivering anything.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
