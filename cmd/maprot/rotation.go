package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/rotation"
)

func rotationCmd() *cli.Command {
	return &cli.Command{
		Name:  "rotation",
		Usage: "Edit the stored map rotation",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showRotation()
		},
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the rotation with each map's successor",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return showRotation()
				},
			},
			{
				Name:  "names",
				Usage: "List the stored rotations",
				Action: func(ctx context.Context, c *cli.Command) error {
					store, err := openStore()
					if err != nil {
						return exitf("%v", err)
					}
					defer store.Close()
					names, err := store.Names()
					if err != nil {
						return exitf("%v", err)
					}
					for _, n := range names {
						fmt.Println(n)
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Append maps to the rotation",
				ArgsUsage: "<map> [map ...]",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.NArg() == 0 {
						return exitf("add needs at least one map name")
					}
					return editRotation(func(r *rotation.Rotation) error {
						for _, name := range c.Args().Slice() {
							if err := r.Add(name); err != nil {
								return fmt.Errorf("%s: %w", name, err)
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "insert",
				Usage:     "Insert a map at a position (0 is first)",
				ArgsUsage: "<index> <map>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.NArg() != 2 {
						return exitf("insert takes an index and a map name")
					}
					index, err := strconv.Atoi(c.Args().Get(0))
					if err != nil {
						return exitf("invalid index %q", c.Args().Get(0))
					}
					name := c.Args().Get(1)
					return editRotation(func(r *rotation.Rotation) error {
						return r.Insert(index, name)
					})
				},
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove maps from the rotation",
				ArgsUsage: "<map> [map ...]",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.NArg() == 0 {
						return exitf("remove needs at least one map name")
					}
					return editRotation(func(r *rotation.Rotation) error {
						for _, name := range c.Args().Slice() {
							if err := r.Remove(name); err != nil {
								return fmt.Errorf("%s: %w", name, err)
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "move",
				Usage:     "Move a map up or down (delta: up, down or a signed number)",
				ArgsUsage: "<map> <delta>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.NArg() != 2 {
						return exitf("move takes a map name and a delta")
					}
					name := c.Args().Get(0)
					delta, err := parseDelta(c.Args().Get(1))
					if err != nil {
						return exitf("%v", err)
					}
					return editRotation(func(r *rotation.Rotation) error {
						i := r.Index(name)
						if i < 0 {
							return fmt.Errorf("%s: %w", name, rotation.ErrNotFound)
						}
						if !r.Move(i, delta) {
							fmt.Fprintf(os.Stderr, "%s is already at the edge of the rotation\n", name)
						}
						return nil
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Remove every map from the rotation",
				Action: func(ctx context.Context, c *cli.Command) error {
					return editRotation(func(r *rotation.Rotation) error {
						r.Clear()
						return nil
					})
				},
			},
		},
	}
}

func parseDelta(s string) (int, error) {
	switch s {
	case "up":
		return -1, nil
	case "down":
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delta %q", s)
	}
	return n, nil
}

func editRotation(fn func(r *rotation.Rotation) error) error {
	store, err := openStore()
	if err != nil {
		return exitf("%v", err)
	}
	defer store.Close()
	r, err := store.Update(rotationName, fn)
	if err != nil {
		return exitf("%v", err)
	}
	printRotation(r)
	return nil
}

func showRotation() error {
	r, err := loadRotation()
	if err != nil {
		return exitf("%v", err)
	}
	if jsonOutput {
		return printJSON(os.Stdout, r.Links())
	}
	printRotation(r)
	return nil
}

func printRotation(r *rotation.Rotation) {
	if r.Len() == 0 {
		fmt.Printf("Rotation %q is empty\n", rotationName)
		return
	}
	for i, l := range r.Links() {
		fmt.Printf("%3d  %s -> %s\n", i, l.Map, l.Next)
	}
	if r.Len() > rotation.MaxMaplistEntries {
		fmt.Fprintf(os.Stderr, "warning: %d maps exceed the server maplist limit of %d\n", r.Len(), rotation.MaxMaplistEntries)
	}
}
