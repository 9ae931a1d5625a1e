// Package commands holds the kong command implementations of mapexporter.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mapexporter/internal/config"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/notify"
	"git.home.luguber.info/inful/mapexporter/internal/session"
)

// shutdownTimeout bounds how long a command waits for the server to stop.
const shutdownTimeout = 5 * time.Second

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Generate GenerateCmd `cmd:"" help:"Generate all regions headlessly and export them"`
	Serve    ServeCmd    `cmd:"" help:"Generate regions while serving a live preview"`
	Export   ExportCmd   `cmd:"" help:"Generate all regions and export them to a directory"`
	Tui      TuiCmd      `cmd:"" help:"Interactive terminal session"`

	stdout io.Writer
}

// AfterApply runs after flag parsing; setup logging once. The logging section
// of the configuration is honoured when the file can be read.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logging := config.Default().Logging
	if cfg, err := config.Load(c.Config); err == nil {
		logging = cfg.Logging
	}
	slog.SetDefault(logging.NewLogger(os.Stderr, c.Verbose))
	return nil
}

func (c *CLI) out() io.Writer {
	if c.stdout != nil {
		return c.stdout
	}
	return os.Stdout
}

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(c.Config)
}

// printMessages writes status messages the way a host displays them.
func printMessages(w io.Writer, msgs []notify.Message) {
	for _, m := range msgs {
		_, _ = fmt.Fprintln(w, m.String())
	}
}

// closeSession disposes s with a bounded timeout.
func closeSession(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		slog.Warn("Session shutdown incomplete", logfields.SessionID(s.ID()), logfields.Error(err))
	}
}
