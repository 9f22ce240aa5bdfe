package tunnel

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/tunsel/tunsel/pkg/logger"
)

// ExecController runs the tunnel client as a child process. Start writes
// the config blob to a private file and launches the client against it;
// Stop sends SIGTERM. Process exit is observed on a background goroutine
// and only logged, keeping both calls non-blocking.
type ExecController struct {
	cmdPath string
	workDir string
	log     logger.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecController creates a controller launching cmdPath. Config files
// are written under workDir.
func NewExecController(cmdPath, workDir string, log logger.Logger) *ExecController {
	if log == nil {
		log = logger.NewNop()
	}
	return &ExecController{cmdPath: cmdPath, workDir: workDir, log: log}
}

// Start launches the tunnel client. An already running session is
// terminated first so the controller never runs two at once.
func (c *ExecController) Start(config, profile, username, password string, bypass []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	cfgPath := filepath.Join(c.workDir, "session.conf")
	if err := os.WriteFile(cfgPath, []byte(config), 0600); err != nil {
		return fmt.Errorf("write session config: %w", err)
	}

	args := []string{"--config", cfgPath}
	if profile != "" {
		args = append(args, "--profile", profile)
	}
	if len(bypass) > 0 {
		args = append(args, "--bypass", strings.Join(bypass, ","))
	}
	cmd := exec.Command(c.cmdPath, args...)
	if username != "" {
		cmd.Env = append(os.Environ(),
			"TUNNEL_USERNAME="+username,
			"TUNNEL_PASSWORD="+password,
		)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch tunnel client: %w", err)
	}
	c.cmd = cmd
	c.log.Info("tunnel: started %s (pid %d)", profile, cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		if c.cmd == cmd {
			c.cmd = nil
		}
		c.mu.Unlock()
		if err != nil {
			c.log.Warning("tunnel: client exited: %v", err)
		}
	}()
	return nil
}

// Stop terminates the active session. Stopping when nothing runs is a
// no-op.
func (c *ExecController) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

func (c *ExecController) stopLocked() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		c.log.Warning("tunnel: signal client: %v", err)
	}
	c.cmd = nil
}

var _ Controller = (*ExecController)(nil)
