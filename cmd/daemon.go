package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/internal/alarm"
	"github.com/tunsel/tunsel/internal/engine"
	"github.com/tunsel/tunsel/internal/event"
	"github.com/tunsel/tunsel/internal/server"
	"github.com/tunsel/tunsel/internal/store"
	"github.com/tunsel/tunsel/internal/tunnel"
	"github.com/tunsel/tunsel/pkg/logger"
)

const shutdownGrace = 5 * time.Second

var daemonFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "addr",
		Usage:  "listen address for the control surface",
		EnvVar: common.ListenAddrEnv,
		Value:  common.DefaultListenAddr,
	},
	cli.StringFlag{
		Name:   "secret",
		Usage:  "bearer token required by the control surface",
		EnvVar: common.SecretEnv,
	},
	cli.StringFlag{
		Name:   "data-dir",
		Usage:  "directory for the schedule store and pidfile",
		EnvVar: common.DataDirEnv,
	},
	cli.StringFlag{
		Name:   "seal-key",
		Usage:  "hex-encoded AES key for sealing stored credentials",
		EnvVar: common.SealKeyEnv,
	},
	cli.StringFlag{
		Name:   "tunnel-cmd",
		Usage:  "tunnel client binary launched for each session",
		EnvVar: common.TunnelCmdEnv,
		Value:  "openvpn",
	},
	cli.StringFlag{
		Name:  "log-file",
		Usage: "write logs to this file with rotation instead of stderr",
	},
	cli.BoolFlag{
		Name:  "exit-on-idle",
		Usage: "exit when the last schedule is removed and no session runs",
	},
}

// defaultDataDir resolves the storage directory when --data-dir is unset.
func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tunsel"), nil
}

func daemon(ctx *cli.Context) error {
	secret := ctx.String("secret")
	if secret == "" {
		return fmt.Errorf("no auth secret configured, set --secret or %s", common.SecretEnv)
	}

	dataDir := ctx.String("data-dir")
	if dataDir == "" {
		var err error
		if dataDir, err = defaultDataDir(); err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	var lg logger.Logger
	if logFile := ctx.String("log-file"); logFile != "" {
		lg = logger.NewFile(logFile)
	} else {
		lg = logger.NewConsole(log.New(os.Stderr, "", log.LstdFlags))
	}
	defer lg.Close()

	var sealKey []byte
	if hexKey := ctx.String("seal-key"); hexKey != "" {
		var err error
		if sealKey, err = hex.DecodeString(hexKey); err != nil {
			return fmt.Errorf("invalid seal key: %w", err)
		}
	}

	if err := writePidFile(dataDir); err != nil {
		return err
	}
	defer removePidFile(dataDir)

	st, err := store.Open(store.Options{
		Dir:     filepath.Join(dataDir, "store"),
		SealKey: sealKey,
		Logger:  lg,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctrl := tunnel.NewExecController(ctx.String("tunnel-cmd"), dataDir, lg)
	bus := event.NewBus(lg)

	idleCh := make(chan struct{}, 1)
	var onIdle func()
	if ctx.Bool("exit-on-idle") {
		onIdle = func() {
			select {
			case idleCh <- struct{}{}:
			default:
			}
		}
	}

	gwCtx, cancelGw := context.WithCancel(context.Background())
	defer cancelGw()

	// The gateway needs the engine's fire handlers and the engine needs
	// the gateway for arming, so the closure breaks the cycle.
	var eng *engine.Engine
	gw := alarm.New(gwCtx, st, func(kind alarm.Kind, id string) {
		switch kind {
		case alarm.KindConnect:
			eng.OnConnectFired(id)
		case alarm.KindDisconnect:
			eng.OnDisconnectFired(id)
		}
	}, lg)
	eng = engine.New(engine.Config{
		Store:      st,
		Gateway:    gw,
		Controller: ctrl,
		Bus:        bus,
		Logger:     lg,
		OnIdle:     onIdle,
	})

	// Registrations first, then the sweep: a missed fire found by
	// Restore and a Reconcile decision must see the same store.
	if err := gw.Restore(); err != nil {
		lg.Warning("daemon: restore timers: %v", err)
	}
	eng.Reconcile()

	notifier := event.NewNotifier(lg)
	go notifier.Pump(gwCtx, bus)

	srv := server.New(server.Config{
		Addr:    ctx.String("addr"),
		Secret:  secret,
		Version: version,
		Commit:  commit,
	}, eng, notifier, lg)

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("daemon: received %v, shutting down", sig)
	case <-idleCh:
		lg.Info("daemon: idle, shutting down")
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("control surface: %w", err)
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		lg.Warning("daemon: shutdown: %v", err)
	}
	if err := ctrl.Stop(); err != nil {
		lg.Warning("daemon: stop session: %v", err)
	}
	return nil
}

func stopDaemon(ctx *cli.Context) error {
	dataDir := ctx.String("data-dir")
	if dataDir == "" {
		var err error
		if dataDir, err = defaultDataDir(); err != nil {
			return printErr(err)
		}
	}

	pid, err := readPidFile(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (PID file not found)")
			return nil
		}
		return printErr(err)
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)
	if err := killDaemon(pid); err != nil {
		return printErr(err)
	}
	fmt.Println("Daemon stopped")
	return nil
}
