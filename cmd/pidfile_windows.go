//go:build windows

package cmd

import (
	"golang.org/x/sys/windows"
)

// isProcessRunning opens the process with minimal access rights; success
// means a process with that pid still exists.
func isProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	windows.CloseHandle(handle)
	return true
}
