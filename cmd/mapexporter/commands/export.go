package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mapexporter/internal/exporter"
)

// ExportCmd generates all regions and writes them below Dir/Name.
type ExportCmd struct {
	Source string `short:"s" name:"source" help:"Directory holding region source files (overrides config)."`
	Dir    string `short:"d" name:"dir" help:"Destination directory (defaults to the configured directory)."`
	Name   string `short:"n" name:"name" help:"Export name inside the directory (defaults to the configured name)."`
	Kind   string `short:"k" name:"kind" help:"Export kind: static or server."`
}

func (e *ExportCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if e.Source != "" {
		cfg.Source.Directory = e.Source
	}
	dir, name := cfg.Export.Directory, cfg.Export.Name
	if e.Dir != "" {
		dir = e.Dir
	}
	if e.Name != "" {
		name = e.Name
	}
	dest, err := exporter.Destination(dir, name)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return runGenerateAndExport(ctx, root.out(), cfg, e.Kind, dest)
}
