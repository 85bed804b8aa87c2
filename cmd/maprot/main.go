package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/logger"
)

// cfg is the loaded config file, available to every command after the root
// Before hook ran.
var cfg Config

func main() {
	app := &cli.Command{
		Name:   "maprot",
		Usage:  "Extract, relink and deploy the map rotation of a Quake II server",
		Flags:  slices.Concat(workspaceFlags(), loggingFlags()),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			extractCmd(),
			listCmd(),
			showCmd(),
			checkCmd(),
			rotationCmd(),
			generateCmd(),
			bundleCmd(),
			deployCmd(),
			pushCmd(),
			consoleCmd(),
			sendCmd(),
			restartCmd(),
			historyCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	withConfig(app.Commands)

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file, lets it fill unset flags and installs the
// logger into the context.
func setup(ctx context.Context, c *cli.Command) (context.Context, error) {
	loaded, err := LoadConfig(configPath())
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	cfg = loaded
	applyConfig(c, cfg)

	log, err := newLogger()
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return logger.WithContext(ctx, log), nil
}

// withConfig makes every action re-apply the config file before it runs, since
// subcommand flags reset their destinations to defaults when parsed.
func withConfig(cmds []*cli.Command) {
	for _, c := range cmds {
		if action := c.Action; action != nil {
			c.Action = func(ctx context.Context, cmd *cli.Command) error {
				applyConfig(cmd, cfg)
				return action(ctx, cmd)
			}
		}
		withConfig(c.Commands)
	}
}

func newLogger() (logger.Logger, error) {
	level, ok := logger.ParseLevel(logLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}
	if debug {
		level = slog.LevelDebug
	}
	format := logFormat
	if format == "" || format == "auto" {
		format = logger.FormatText
		if isTerminal(os.Stderr) {
			format = logger.FormatPretty
		}
	}
	return logger.NewFormat(format, os.Stderr, level)
}
