package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsync/cmd/docsync/commands"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}

	parser := kong.Parse(cli,
		kong.Name("docsync"),
		kong.Description("Keep a markdown report in sync with a research collaborator, one section at a time."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := parser.Run(global, cli); err != nil {
		logger := global.Logger
		if logger == nil {
			logger = slog.Default()
		}
		errors.NewCLIErrorAdapter(cli.Verbose, logger).HandleError(err)
		os.Exit(1)
	}
}
