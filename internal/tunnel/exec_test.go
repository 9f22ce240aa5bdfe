//go:build !windows

package tunnel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tunsel/tunsel/pkg/logger"
)

func TestExecControllerStartStop(t *testing.T) {
	dir := t.TempDir()
	c := NewExecController("/bin/sleep", dir, logger.NewNop())

	// /bin/sleep rejects the tunnel flags and exits at once; the test
	// only exercises the launch and teardown paths.
	if err := c.Start("60", "test", "", "", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session.conf"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if string(data) != "60" {
		t.Errorf("config = %q", data)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Idempotent when nothing is running.
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
}

func TestExecControllerStartFailure(t *testing.T) {
	c := NewExecController("/no/such/binary", t.TempDir(), logger.NewNop())
	if err := c.Start("cfg", "p", "", "", nil); err == nil {
		t.Fatal("expected launch error")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop after failed start: %v", err)
	}
}
