package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/safedump/internal/api"
	"github.com/samcharles93/safedump/internal/logger"
	"github.com/samcharles93/safedump/internal/version"
)

func serveCmd() *cli.Command {
	var (
		addr         string
		readTimeout  time.Duration
		maxBodyBytes int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the decoder over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-body-bytes",
				Usage:       "largest accepted request body",
				Value:       api.DefaultMaxBodyBytes,
				Destination: &maxBodyBytes,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr, &maxBodyBytes)

			server := api.NewServer(api.Config{
				Decoder:      newDecoder(),
				MaxBodyBytes: maxBodyBytes,
				Logger:       log.With("component", "api"),
				Version:      version.String(),
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "max_body_bytes", maxBodyBytes)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadTimeout = readTimeout
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
