package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mapexporter/internal/session"
	"git.home.luguber.info/inful/mapexporter/internal/tui"
)

// TuiCmd runs the interactive host.
type TuiCmd struct {
	Source   string        `short:"s" name:"source" help:"Directory holding region source files (overrides config)."`
	Interval time.Duration `name:"interval" help:"Tick interval (overrides config)."`
}

func (t *TuiCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if t.Source != "" {
		cfg.Source.Directory = t.Source
	}
	interval := cfg.Generation.TickInterval
	if t.Interval > 0 {
		interval = t.Interval
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	defer closeSession(s)
	return tui.Run(ctx, s, interval)
}
