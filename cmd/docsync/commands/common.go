package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/section"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives command output; nil means stdout.
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
	Config    string           `short:"c" help:"Configuration file path" default:"docsync.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text or json); overrides the config file"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve    ServeCmd    `cmd:"" help:"Run a session: connect to the collaborator and serve the display API"`
	Sections SectionsCmd `cmd:"" help:"List the sections of a markdown file"`
	Locate   LocateCmd   `cmd:"" help:"Find the section a title resolves to"`
	Patch    PatchCmd    `cmd:"" help:"Replace one section of a markdown file, with the same guards a session applies"`
	Convert  ConvertCmd  `cmd:"" help:"Convert edit-mode HTML to markdown"`
	History  HistoryCmd  `cmd:"" help:"Show journaled revisions"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = newLogger(config.NormalizeLogFormat(c.LogFormat), level)
	slog.SetDefault(g.Logger)
	return nil
}

// ConfigureFromFile re-creates the logger from the config's logging section.
// Command-line flags win over the file.
func (c *CLI) ConfigureFromFile(g *Global, cfg *config.Config) {
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	g.Logger = newLogger(format, level)
	slog.SetDefault(g.Logger)
}

func newLogger(format config.LogFormat, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// LoadConfig loads the configured file. When the file is absent and optional is
// set, the defaults are returned instead.
func (c *CLI) LoadConfig(optional bool) (*config.Config, error) {
	if _, err := os.Stat(c.Config); err != nil && os.IsNotExist(err) && optional {
		return config.Default(), nil
	}
	return config.Load(c.Config)
}

// newBuilder returns the section builder every command renders with.
func newBuilder() *section.Builder {
	return section.NewBuilder(markdown.NewRenderer(markdown.Options{GFM: true}), section.NewSequence("n"))
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to read input").
			WithContext("path", path).
			Build()
	}
	return string(data), nil
}
