package commands

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/streakd/internal/config"
	"git.home.luguber.info/inful/streakd/internal/daemon"
	"git.home.luguber.info/inful/streakd/internal/logfields"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	// Out receives rendered command output. Defaults to stdout.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path; built-in defaults apply when the default file is absent" default:"streakd.yaml" env:"STREAKD_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon      DaemonCmd      `cmd:"" help:"Run the scheduler and admin server until interrupted"`
	Rollover    RolloverCmd    `cmd:"" help:"Run the daily rollover now"`
	Done        DoneCmd        `cmd:"" help:"Record one unit of progress on an activity"`
	Add         AddCmd         `cmd:"" help:"Start tracking a new activity"`
	Remove      RemoveCmd      `cmd:"" help:"Stop tracking an activity"`
	FreezeCheck FreezeCheckCmd `cmd:"" name:"freeze-check" help:"Show the freeze credit balance"`
	Summary     SummaryCmd     `cmd:"" help:"Show every activity with its progress"`
	Left        LeftCmd        `cmd:"" help:"List activities still incomplete today"`
	Say         SayCmd         `cmd:"" help:"Handle one raw chat line such as '!done read'"`
	Init        InitCmd        `cmd:"" help:"Write a default configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// DefaultConfigPath matches the --config default.
const DefaultConfigPath = "streakd.yaml"

// loadConfig reads root.Config. A missing file at the default path is not an
// error: the built-in defaults and STREAKD_* variables are used and the
// returned path is empty, so nothing is watched.
func loadConfig(root *CLI) (*config.Config, string, error) {
	path := root.Config
	if path == DefaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No configuration file, using defaults", logfields.Path(path))
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openServices loads the configuration and wires the core.
// The caller owns the returned services and must Close them.
func openServices(ctx context.Context, root *CLI, opts ...daemon.ServicesOption) (*config.Config, *daemon.Services, error) {
	cfg, _, err := loadConfig(root)
	if err != nil {
		return nil, nil, err
	}
	svc, err := daemon.NewServices(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

func closeServices(svc *daemon.Services) {
	if err := svc.Close(); err != nil {
		slog.Warn("Failed to close services", logfields.Error(err))
	}
}
