package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/api"
	"github.com/mrcl/maprot/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the map inventory and rotation over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "request header read timeout",
				Value:       10 * time.Second,
				Destination: &readTimeout,
			},
			strictFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			if cfg.ServerAddress != "" && !c.IsSet("addr") {
				addr = cfg.ServerAddress
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore()
			if err != nil {
				return exitf("%v", err)
			}
			defer store.Close()
			jr, err := openJournal()
			if err != nil {
				log.Warn("run history unavailable", "path", journalFile(), "error", err)
				jr = nil
			} else {
				defer jr.Close()
			}

			server := api.NewServer(api.Config{
				Layout:       currentLayout(),
				Store:        store,
				RotationName: rotationName,
				Settings:     currentSettings(),
				Strict:       strict,
				Journal:      jr,
				Logger:       log,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "rotation", rotationName)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
