package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
)

var historyLimit int

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show recent extract, generate, bundle and deploy runs",
		ArgsUsage: "[run id]",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "number of runs to show",
				Value:       20,
				Destination: &historyLimit,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			j, err := openJournal()
			if err != nil {
				return exitf("%v", err)
			}
			defer j.Close()

			if c.NArg() == 1 {
				items, err := j.Items(ctx, c.Args().First())
				if err != nil {
					return exitf("%v", err)
				}
				if jsonOutput {
					return printJSON(os.Stdout, items)
				}
				for _, it := range items {
					status := "ok"
					if !it.OK {
						status = "FAILED " + it.Message
					}
					fmt.Printf("%s: %s\n", it.Subject, status)
				}
				return nil
			}

			runs, err := j.Recent(ctx, historyLimit)
			if err != nil {
				return exitf("%v", err)
			}
			if jsonOutput {
				return printJSON(os.Stdout, runs)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tSTARTED\tITEMS\tFAILED\tDETAIL")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.Kind, r.Status, r.Started.Local().Format(time.DateTime), r.Items, r.Failures, r.Detail)
			}
			return tw.Flush()
		},
	}
}
