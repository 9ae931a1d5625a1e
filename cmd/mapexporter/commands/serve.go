package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mapexporter/internal/config"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/session"
	"git.home.luguber.info/inful/mapexporter/internal/watch"
)

// ServeCmd generates regions at the configured tick rate and serves them as
// soon as the first one is published.
type ServeCmd struct {
	Source   string        `short:"s" name:"source" help:"Directory holding region source files (overrides config)."`
	Port     int           `short:"p" name:"port" help:"Preview server port (overrides config)."`
	Watch    bool          `short:"w" name:"watch" help:"Regenerate when region sources change."`
	Debounce time.Duration `name:"debounce" default:"300ms" help:"Quiet period before a source change triggers regeneration."`
}

func (c *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if c.Source != "" {
		cfg.Source.Directory = c.Source
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return runServe(ctx, root.out(), cfg, serveOptions{
		watch:     c.Watch,
		debounce:  c.Debounce,
		bindRetry: defaultBindRetry,
	})
}

// defaultBindRetry is the pause between attempts to start a server whose
// address could not be bound.
const defaultBindRetry = 5 * time.Second

type serveOptions struct {
	watch     bool
	debounce  time.Duration
	bindRetry time.Duration
}

func runServe(ctx context.Context, w io.Writer, cfg *config.Config, opts serveOptions) error {
	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	defer closeSession(s)

	var changes <-chan struct{}
	if opts.watch {
		watcher, err := watch.New(cfg.Source.Directory, cfg.Source.Pattern, opts.debounce)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		changes = watcher.Changes()
	}

	ticker := time.NewTicker(cfg.Generation.TickInterval)
	defer ticker.Stop()

	var (
		reported  error
		bindErr   error
		nextStart time.Time
	)
	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(w, "Shutting down")
			return nil
		case <-changes:
			if err := s.Restart(ctx); err != nil {
				return err
			}
			reported = nil
		case <-ticker.C:
			snap := s.Tick(ctx)
			printMessages(w, snap.Messages)

			if snap.Err != nil && !errors.Is(snap.Err, reported) {
				reported = snap.Err
				if !opts.watch {
					return snap.Err
				}
				slog.Error("Generation failed; waiting for source changes", logfields.Error(snap.Err))
			}
			if snap.Regions == 0 || snap.ServerActive || time.Now().Before(nextStart) {
				continue
			}
			_, err := s.ToggleServer(ctx)
			switch {
			case err == nil:
				bindErr = nil
			case errors.Is(err, merrors.ErrNoRegions):
			case errors.Is(err, merrors.ErrAddressInUse), errors.Is(err, merrors.ErrBindFailure):
				if bindErr == nil {
					slog.Warn("Preview server unavailable; generation continues", logfields.Error(err))
				}
				bindErr = err
				nextStart = time.Now().Add(opts.bindRetry)
			default:
				return err
			}
		}
	}
}
