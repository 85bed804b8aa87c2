package main

import "github.com/urfave/cli/v3"

var (
	workDir      string
	mapsDir      string
	entsDir      string
	modifiedDir  string
	outputDir    string
	statePath    string
	journalPath  string
	rotationName string
	strict       bool
	logLevel     string
	logFormat    string
	debug        bool
	jsonOutput   bool

	remoteHost     string
	remotePort     int
	remoteUser     string
	remotePassword string
	remoteKeyFile  string
	remoteBase     string
)

func workspaceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "work-dir",
			Aliases:     []string{"C"},
			Usage:       "workspace root holding maps/, ents/ and the generated files",
			Value:       ".",
			Sources:     cli.EnvVars("MAPROT_WORK_DIR"),
			Destination: &workDir,
		},
		&cli.StringFlag{
			Name:        "maps-dir",
			Usage:       "directory of .bsp containers (default <work-dir>/maps)",
			Destination: &mapsDir,
		},
		&cli.StringFlag{
			Name:        "ents-dir",
			Usage:       "directory of extracted .ent files (default <work-dir>/ents)",
			Destination: &entsDir,
		},
		&cli.StringFlag{
			Name:        "modified-dir",
			Usage:       "directory of rewritten .ent files (default <work-dir>/ents_modificados)",
			Destination: &modifiedDir,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Usage:       "directory for maplist.txt and server.cfg (default <work-dir>)",
			Destination: &outputDir,
		},
		&cli.StringFlag{
			Name:        "state",
			Usage:       "rotation store path (default <work-dir>/.maprot/state.db)",
			Destination: &statePath,
		},
		&cli.StringFlag{
			Name:        "journal",
			Usage:       "run history database path (default <work-dir>/.maprot/journal.db)",
			Destination: &journalPath,
		},
		&cli.StringFlag{
			Name:        "rotation-name",
			Usage:       "name of the stored rotation to use",
			Value:       "default",
			Destination: &rotationName,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "shorthand for --log-level=debug",
			Destination: &debug,
		},
	}
}

func strictFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:        "strict",
		Usage:       "fail on any per-map error and skip entity files with unbalanced braces",
		Destination: &strict,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "print JSON instead of a table",
		Destination: &jsonOutput,
	}
}

func remoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "host",
			Usage:       "game server host",
			Destination: &remoteHost,
		},
		&cli.IntFlag{
			Name:        "port",
			Usage:       "SSH port",
			Destination: &remotePort,
		},
		&cli.StringFlag{
			Name:        "user",
			Usage:       "SSH user",
			Destination: &remoteUser,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "SSH password",
			Sources:     cli.EnvVars("MAPROT_REMOTE_PASSWORD"),
			Destination: &remotePassword,
		},
		&cli.StringFlag{
			Name:        "key-file",
			Usage:       "SSH private key",
			Destination: &remoteKeyFile,
		},
		&cli.StringFlag{
			Name:        "base-path",
			Usage:       "remote game directory",
			Destination: &remoteBase,
		},
	}
}
