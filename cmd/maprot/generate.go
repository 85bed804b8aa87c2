package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/bundle"
	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/workspace"
)

var generateBundle bool

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Relink the rotation's entity files and write maplist.txt and server.cfg",
		Flags: []cli.Flag{
			strictFlag(),
			&cli.BoolFlag{
				Name:        "bundle",
				Usage:       "also pack the generated files into a bundle",
				Destination: &generateBundle,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rot, err := loadRotation()
			if err != nil {
				return exitf("%v", err)
			}
			if rot.Len() == 0 {
				return exitf("rotation %q is empty; add maps with 'maprot rotation add'", rotationName)
			}

			layout := currentLayout()
			rec := startRun(ctx, journal.KindGenerate, strings.Join(rot.Maps(), " "))
			report, err := workspace.Generate(ctx, rot, layout, workspace.GenerateOptions{
				Settings: currentSettings(),
				Strict:   strict,
			})
			if report != nil {
				for _, m := range report.Maps {
					rec.item(ctx, m.Map, m.Err)
					if m.Err != nil {
						fmt.Printf("%s: skipped: %v\n", m.Map, m.Err)
					} else {
						fmt.Printf("%s: nextmap %s -> %s\n", m.Map, m.Next, m.Output)
					}
				}
			}
			if err != nil {
				rec.finish(ctx, err)
				return exitf("%v", err)
			}
			for _, w := range report.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			fmt.Printf("Wrote %s and %s\n", report.Maplist, report.Config)

			written := report.Written()
			failed := len(report.Maps) - written
			switch {
			case written == 0:
				err = errors.New("no entity file could be rewritten")
			case failed > 0 && strict:
				err = fmt.Errorf("%d map(s) skipped", failed)
			}
			rec.finish(ctx, err)
			if err != nil {
				return exitf("%v", err)
			}

			if generateBundle {
				return createBundle(ctx, rot, report)
			}
			return nil
		},
	}
}

func createBundle(ctx context.Context, rot *rotation.Rotation, report *workspace.Report) error {
	rec := startRun(ctx, journal.KindBundle, bundleDir())
	var entities []string
	for _, m := range report.Maps {
		if m.Err == nil {
			entities = append(entities, m.Output)
		}
	}
	path, manifest, err := bundle.Create(bundle.Params{
		Dir:         bundleDir(),
		MaplistPath: report.Maplist,
		ConfigPath:  report.Config,
		EntityFiles: entities,
		Rotation:    rot.Maps(),
	})
	rec.finish(ctx, err)
	if err != nil {
		return exitf("%v", err)
	}
	logger.FromContext(ctx).Info("bundle written", "path", path, "files", len(manifest.Files))
	fmt.Printf("Bundle %s (%d files)\n", path, len(manifest.Files))
	return nil
}
