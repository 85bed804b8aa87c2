package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/workspace"
	"github.com/mrcl/maprot/pkg/ent"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List maps with their extraction state and next maps",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			layout := currentLayout()
			entries, err := workspace.Inventory(layout.MapsDir, layout.EntsDir)
			if err != nil {
				return exitf("%v", err)
			}
			if jsonOutput {
				return printJSON(os.Stdout, entries)
			}
			if len(entries) == 0 {
				fmt.Printf("No maps found in %s\n", layout.MapsDir)
				return nil
			}
			return printInventory(os.Stdout, entries)
		},
	}
}

func printInventory(w io.Writer, entries []workspace.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MAP\tSTATUS\tNAME\tALLIES NEXT\tAXIS NEXT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Map, e.Status, e.Summary.MapName, e.Summary.AlliesNext, e.Summary.AxisNext)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

var showRaw bool

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one map's summary",
		ArgsUsage: "<map>",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print the extracted entity text",
				Destination: &showRaw,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return exitf("show takes exactly one map name")
			}
			name := c.Args().First()
			layout := currentLayout()
			e, ok, err := workspace.Lookup(layout.MapsDir, layout.EntsDir, name)
			if err != nil {
				return exitf("%v", err)
			}
			if !ok {
				return exitf("map %q not found in %s", name, layout.MapsDir)
			}
			if showRaw {
				if e.Artifact == "" {
					return exitf("map %q has not been extracted", name)
				}
				data, err := os.ReadFile(e.Artifact)
				if err != nil {
					return exitf("%v", err)
				}
				_, err = os.Stdout.Write(data)
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, e)
			}
			fmt.Printf("Map:          %s\n", e.Map)
			fmt.Printf("Container:    %s\n", e.Path)
			fmt.Printf("Status:       %s\n", e.Status)
			if e.Artifact != "" {
				fmt.Printf("Artifact:     %s\n", e.Artifact)
			}
			fmt.Printf("Name:         %s\n", e.Summary.MapName)
			fmt.Printf("Allies next:  %s\n", e.Summary.AlliesNext)
			fmt.Printf("Axis next:    %s\n", e.Summary.AxisNext)
			if e.Error != "" {
				fmt.Printf("Error:        %s\n", e.Error)
			}
			return nil
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check extracted entity files for unbalanced braces",
		ArgsUsage: "[map ...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			layout := currentLayout()
			names := c.Args().Slice()
			if len(names) == 0 {
				entries, err := workspace.Inventory(layout.MapsDir, layout.EntsDir)
				if err != nil {
					return exitf("%v", err)
				}
				for _, e := range entries {
					if e.Status == workspace.StatusGenerated {
						names = append(names, e.Map)
					}
				}
			}
			bad := checkArtifacts(os.Stdout, layout.EntsDir, names)
			if bad > 0 {
				return exitf("%d of %d entity file(s) have problems", bad, len(names))
			}
			return nil
		},
	}
}

// checkArtifacts validates the artifact of each map and reports one line per
// map. It returns the number of artifacts that are unreadable or malformed.
func checkArtifacts(w io.Writer, entsDir string, names []string) int {
	bad := 0
	for _, name := range names {
		path := workspace.ArtifactPath(entsDir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			err = ent.Validate(string(data))
		}
		var syn *ent.SyntaxError
		switch {
		case err == nil:
			fmt.Fprintf(w, "%s: ok\n", name)
		case errors.As(err, &syn):
			bad++
			fmt.Fprintf(w, "%s: %s %v\n", name, path, syn)
		default:
			bad++
			fmt.Fprintf(w, "%s: %v\n", name, err)
		}
	}
	return bad
}
