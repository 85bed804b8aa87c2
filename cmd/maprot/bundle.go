package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/bundle"
	"github.com/mrcl/maprot/internal/servercfg"
	"github.com/mrcl/maprot/internal/workspace"
)

func bundleCmd() *cli.Command {
	return &cli.Command{
		Name:  "bundle",
		Usage: "Pack or verify generated rotation files",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Pack the last generated files of the rotation into a .tar.zst bundle",
				Action: func(ctx context.Context, c *cli.Command) error {
					rot, err := loadRotation()
					if err != nil {
						return exitf("%v", err)
					}
					if rot.Len() == 0 {
						return exitf("rotation %q is empty", rotationName)
					}
					report, err := generatedReport(currentLayout(), rot.Maps())
					if err != nil {
						return exitf("%v", err)
					}
					return createBundle(ctx, rot, report)
				},
			},
			{
				Name:      "verify",
				Usage:     "Check a bundle's files against its manifest",
				ArgsUsage: "<bundle.tar.zst>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.NArg() != 1 {
						return exitf("verify takes exactly one bundle path")
					}
					manifest, err := bundle.Verify(c.Args().First())
					if err != nil {
						return exitf("%v", err)
					}
					names := make([]string, 0, len(manifest.Files))
					for name := range manifest.Files {
						names = append(names, name)
					}
					sort.Strings(names)
					for _, name := range names {
						f := manifest.Files[name]
						fmt.Printf("%-8s %8d  %s  %s\n", f.Type, f.Size, f.SHA256[:12], name)
					}
					fmt.Printf("OK: %d files, created %s\n", len(names), manifest.Timestamp)
					return nil
				},
			},
		},
	}
}

// generatedReport rebuilds a generation report from the files already on
// disk, so a bundle can be cut without rewriting anything.
func generatedReport(l workspace.Layout, maps []string) (*workspace.Report, error) {
	report := &workspace.Report{
		Maplist: filepath.Join(l.OutputDir, servercfg.MaplistFile),
		Config:  filepath.Join(l.OutputDir, servercfg.ConfigFile),
	}
	for _, p := range []string{report.Maplist, report.Config} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w; run 'maprot generate' first", err)
		}
	}
	for _, m := range maps {
		res := workspace.MapResult{Map: m, Output: workspace.ArtifactPath(l.ModifiedDir, m)}
		if _, err := os.Stat(res.Output); err != nil {
			res.Err = err
		}
		report.Maps = append(report.Maps, res)
	}
	return report, nil
}
