package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/streakd/internal/config"
	"git.home.luguber.info/inful/streakd/internal/daemon"
	"git.home.luguber.info/inful/streakd/internal/logfields"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Addr string `help:"Admin HTTP listen address (overrides metrics.addr)"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, path, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if d.Addr != "" {
		cfg.Metrics.Addr = d.Addr
	}
	return RunDaemon(cfg, path)
}

// RunDaemon blocks until SIGINT or SIGTERM, then shuts the daemon down.
func RunDaemon(cfg *config.Config, configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := daemon.NewServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	d, err := daemon.NewDaemon(cfg, configPath, svc)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	slog.Info("Starting daemon", logfields.Path(configPath))
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	slog.Info("Daemon stopped")
	return nil
}
