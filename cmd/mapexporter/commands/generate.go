package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mapexporter/internal/config"
	"git.home.luguber.info/inful/mapexporter/internal/exporter"
	"git.home.luguber.info/inful/mapexporter/internal/session"
)

// GenerateCmd runs the whole pipeline without pacing and exports the result.
type GenerateCmd struct {
	Source string `short:"s" name:"source" help:"Directory holding region source files (overrides config)."`
	Out    string `short:"o" name:"out" help:"Export destination path (defaults to the configured directory and name)."`
	Kind   string `short:"k" name:"kind" help:"Export kind: static or server."`
}

func (g *GenerateCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if g.Source != "" {
		cfg.Source.Directory = g.Source
	}
	dest := g.Out
	if dest == "" {
		if dest, err = exporter.Destination(cfg.Export.Directory, cfg.Export.Name); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return runGenerateAndExport(ctx, root.out(), cfg, g.Kind, dest)
}

// runGenerateAndExport drives a fresh session to completion and exports it
// synchronously to dest.
func runGenerateAndExport(ctx context.Context, w io.Writer, cfg *config.Config, kindFlag, dest string) error {
	kindName := cfg.Export.Kind
	if kindFlag != "" {
		kindName = kindFlag
	}
	kind, err := exporter.ParseKind(kindName)
	if err != nil {
		return err
	}

	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	defer closeSession(s)

	genErr := s.Generate(ctx)
	printMessages(w, s.Tick(ctx).Messages)
	if genErr != nil {
		return genErr
	}

	if kind == exporter.KindServer {
		if _, err := s.ToggleServer(ctx); err != nil {
			printMessages(w, s.Tick(ctx).Messages)
			return err
		}
	}

	res := s.Exporter().Export(ctx, kind, dest)
	printMessages(w, s.Tick(ctx).Messages)
	if res.Err != nil {
		return res.Err
	}
	_, _ = fmt.Fprintf(w, "%d regions, %d files (%d bytes) written to %s\n",
		s.Store().Len(), res.Files, res.Bytes, res.Destination)
	return nil
}
