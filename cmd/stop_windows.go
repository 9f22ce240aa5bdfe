//go:build windows

package cmd

import (
	"fmt"
	"os"
	"time"
)

const (
	stopTimeout  = 5 * time.Second
	pollInterval = 100 * time.Millisecond
)

// killDaemon terminates the daemon process and waits for it to go away.
func killDaemon(pid int) error {
	if !isProcessRunning(pid) {
		return fmt.Errorf("daemon not running (PID %d)", pid)
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Kill(); err != nil {
		return fmt.Errorf("failed to kill process: %w", err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("daemon did not exit within %v", stopTimeout)
}
