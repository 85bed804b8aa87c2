package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/remote"
)

var consoleWait time.Duration

func dialRemote(ctx context.Context, c *cli.Command) (*remote.Client, error) {
	rc := currentRemote(c)
	log := logger.FromContext(ctx)
	log.Debug("connecting", "addr", rc.Addr(), "user", rc.User)
	client, err := remote.Dial(ctx, rc)
	if err != nil {
		return nil, err
	}
	log.Info("connected", "addr", rc.Addr())
	return client, nil
}

func deployCmd() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "Upload maplist.txt, server.cfg and the rewritten entity files to the server",
		Flags: slices.Concat(remoteFlags(), []cli.Flag{strictFlag()}),
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := dialRemote(ctx, c)
			if err != nil {
				return exitf("%v", err)
			}
			defer client.Close()
			fsys, err := client.FS()
			if err != nil {
				return exitf("%v", err)
			}

			layout := currentLayout()
			rc := client.Config()
			rec := startRun(ctx, journal.KindDeploy, rc.Addr()+":"+rc.BasePath)
			report, err := remote.Deploy(ctx, fsys, remote.DeployPlan{
				OutputDir:   layout.OutputDir,
				ModifiedDir: layout.ModifiedDir,
				BasePath:    rc.BasePath,
				EntsDir:     rc.EntsDir,
			})
			if report != nil {
				for _, dir := range report.Created {
					fmt.Printf("created %s\n", dir)
				}
				for _, u := range report.Uploads {
					rec.item(ctx, u.Remote, u.Err)
					if u.Err != nil {
						fmt.Printf("FAILED %s: %v\n", u.Local, u.Err)
					} else {
						fmt.Printf("%s -> %s (%d bytes)\n", u.Local, u.Remote, u.Bytes)
					}
				}
			}
			if err == nil && report.Failed() > 0 && (strict || report.Failed() == len(report.Uploads)) {
				err = fmt.Errorf("%d of %d upload(s) failed", report.Failed(), len(report.Uploads))
			}
			rec.finish(ctx, err)
			if err != nil {
				return exitf("%v", err)
			}
			return nil
		},
	}
}

func pushCmd() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Upload a single file (default destination: the remote base path)",
		ArgsUsage: "<file> [remote dir]",
		Flags:     remoteFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return exitf("push takes a file and an optional remote directory")
			}
			local := c.Args().Get(0)
			if st, err := os.Stat(local); err != nil {
				return exitf("%v", err)
			} else if st.IsDir() {
				return exitf("%s is a directory", local)
			}

			client, err := dialRemote(ctx, c)
			if err != nil {
				return exitf("%v", err)
			}
			defer client.Close()
			fsys, err := client.FS()
			if err != nil {
				return exitf("%v", err)
			}

			dir := client.Config().BasePath
			if c.NArg() == 2 {
				dir = c.Args().Get(1)
				if !path.IsAbs(dir) && client.Config().BasePath != "" {
					dir = path.Join(client.Config().BasePath, dir)
				}
			}
			if dir == "" {
				return exitf("no remote directory given and remote.base_path is not configured")
			}

			rec := startRun(ctx, journal.KindPush, local)
			u, err := remote.Push(ctx, fsys, local, dir)
			rec.item(ctx, u.Remote, err)
			rec.finish(ctx, err)
			if err != nil {
				return exitf("%v", err)
			}
			fmt.Printf("%s -> %s (%d bytes)\n", u.Local, u.Remote, u.Bytes)
			return nil
		},
	}
}

func consoleCmd() *cli.Command {
	return &cli.Command{
		Name:  "console",
		Usage: "Attach to the server console; type :restart to restart and :quit to leave",
		Flags: remoteFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := dialRemote(ctx, c)
			if err != nil {
				return exitf("%v", err)
			}
			defer client.Close()
			con, err := client.Console(ctx, os.Stdout)
			if err != nil {
				return exitf("%v", err)
			}
			defer con.Close()

			lines := make(chan string)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(os.Stdin)
				for sc.Scan() {
					lines <- sc.Text()
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-con.Done():
					if err := con.Err(); err != nil {
						return exitf("%v", err)
					}
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if err := consoleLine(con, line); err != nil {
						if errors.Is(err, errLeaveConsole) {
							return nil
						}
						fmt.Fprintf(os.Stderr, "error: %v\n", err)
					}
				}
			}
		},
	}
}

var errLeaveConsole = errors.New("leave console")

// consoleLine handles one line typed at the console prompt.
func consoleLine(con *remote.Console, line string) error {
	switch strings.TrimSpace(line) {
	case "":
		return nil
	case ":quit", ":q":
		return errLeaveConsole
	case ":restart":
		return con.Restart()
	}
	return con.Send(line)
}

func waitFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:        "wait",
		Usage:       "how long to show console output after sending",
		Value:       2 * time.Second,
		Destination: &consoleWait,
	}
}

// oneShot opens a console, runs fn, and keeps streaming output for the wait
// duration before closing.
func oneShot(ctx context.Context, c *cli.Command, fn func(*remote.Console) error) error {
	client, err := dialRemote(ctx, c)
	if err != nil {
		return exitf("%v", err)
	}
	defer client.Close()
	con, err := client.Console(ctx, os.Stdout)
	if err != nil {
		return exitf("%v", err)
	}
	if err := fn(con); err != nil {
		_ = con.Close()
		return exitf("%v", err)
	}
	select {
	case <-time.After(consoleWait):
	case <-con.Done():
	case <-ctx.Done():
	}
	if err := con.Close(); err != nil {
		return exitf("%v", err)
	}
	return nil
}

func sendCmd() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Type one command into the server console",
		ArgsUsage: "<command ...>",
		Flags:     append(remoteFlags(), waitFlag()),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return exitf("send needs a command")
			}
			line := strings.Join(c.Args().Slice(), " ")
			return oneShot(ctx, c, func(con *remote.Console) error {
				return con.Send(line)
			})
		},
	}
}

func restartCmd() *cli.Command {
	return &cli.Command{
		Name:  "restart",
		Usage: "Restart the game server by sending quit to its console",
		Flags: append(remoteFlags(), waitFlag()),
		Action: func(ctx context.Context, c *cli.Command) error {
			return oneShot(ctx, c, func(con *remote.Console) error {
				logger.FromContext(ctx).Info("restarting server")
				return con.Restart()
			})
		},
	}
}
