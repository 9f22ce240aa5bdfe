package logger

import (
	"bytes"
	"log"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(log.New(&buf, "", 0))

	c.Info("starting %s", "daemon")
	c.Warning("late fire")
	c.Error("save failed: %v", "disk full")

	out := buf.String()
	for _, want := range []string{
		"[INFO] starting daemon",
		"[WARNING] late fire",
		"[ERROR] save failed: disk full",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestRecorderKeepsMessages(t *testing.T) {
	r := NewRecorder()
	r.Info("a %d", 1)
	r.Warning("b")
	r.Error("c")

	if len(r.Infos) != 1 || r.Infos[0] != "a 1" {
		t.Errorf("Infos = %v", r.Infos)
	}
	if len(r.Warnings) != 1 || len(r.Errors) != 1 {
		t.Errorf("Warnings = %v, Errors = %v", r.Warnings, r.Errors)
	}
	if r.Closed {
		t.Error("Closed before Close call")
	}
	if err := r.Close(); err != nil || !r.Closed {
		t.Errorf("Close: err=%v closed=%v", err, r.Closed)
	}
}

func TestNopDiscards(t *testing.T) {
	n := NewNop()
	n.Info("ignored")
	n.Warning("ignored")
	n.Error("ignored")
	if err := n.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFileWritesAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunseld.log")
	f := NewFile(path)
	f.Info("hello")
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
