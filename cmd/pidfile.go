package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const pidFileName = "tunseld.pid"

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, pidFileName)
}

// writePidFile records the current process id, refusing to overwrite the
// pidfile of a daemon that is still alive.
func writePidFile(dataDir string) error {
	path := pidFilePath(dataDir)
	if pid, err := readPidFile(dataDir); err == nil && isProcessRunning(pid) {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func readPidFile(dataDir string) (int, error) {
	data, err := os.ReadFile(pidFilePath(dataDir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

func removePidFile(dataDir string) error {
	err := os.Remove(pidFilePath(dataDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
