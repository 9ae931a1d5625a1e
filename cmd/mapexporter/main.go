package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mapexporter/cmd/mapexporter/commands"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/version"
)

func main() {
	var cli commands.CLI
	kctx := kong.Parse(&cli,
		kong.Name("mapexporter"),
		kong.Description("Generate region maps incrementally, preview them and export them."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := kctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	merrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
