package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/workspace"
	"github.com/mrcl/maprot/pkg/bsp"
)

func extractCmd() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract the entity text of every map, or of the given maps",
		ArgsUsage: "[map|file.bsp ...]",
		Flags:     []cli.Flag{strictFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			layout := currentLayout()
			log := logger.FromContext(ctx)

			detail := "all"
			if c.NArg() > 0 {
				detail = strings.Join(c.Args().Slice(), " ")
			}
			rec := startRun(ctx, journal.KindExtract, detail)

			var (
				outcomes []workspace.Outcome
				err      error
			)
			if c.NArg() == 0 {
				outcomes, err = workspace.ExtractAll(ctx, layout.MapsDir, layout.EntsDir)
			} else {
				for _, arg := range c.Args().Slice() {
					outcomes = append(outcomes, workspace.ExtractOne(containerPath(layout, arg), layout.EntsDir))
				}
			}
			for _, o := range outcomes {
				rec.item(ctx, workspace.MapName(o.Path), o.Err)
				fmt.Println(o.Status())
			}
			if err != nil {
				rec.finish(ctx, err)
				return exitf("%v", err)
			}

			failed := workspace.Failed(outcomes)
			log.Info("extraction finished", "maps", len(outcomes), "failed", failed)
			fmt.Printf("%d extracted, %d failed\n", len(outcomes)-failed, failed)
			if failed == len(outcomes) {
				err = errors.New("every map failed to extract")
			} else if failed > 0 && strict {
				err = fmt.Errorf("%d map(s) failed to extract", failed)
			}
			rec.finish(ctx, err)
			if err != nil {
				return exitf("%v", err)
			}
			return nil
		},
	}
}

// containerPath accepts a bare map name, resolved inside the maps dir, or a
// path to a container file.
func containerPath(l workspace.Layout, arg string) string {
	if strings.ContainsRune(arg, filepath.Separator) || strings.EqualFold(filepath.Ext(arg), bsp.Extension) {
		return arg
	}
	return filepath.Join(l.MapsDir, arg+bsp.Extension)
}
