package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/safedump/internal/logger"
	"github.com/samcharles93/safedump/pkg/safetensors"
)

var (
	configFile     string
	logLevel       string
	logFormat      string
	debug          bool
	maxHeaderBytes uint64

	// cfg is the loaded config file, populated by setup.
	cfg Config
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Sources:     cli.EnvVars(envConfig),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
		&cli.Uint64Flag{
			Name:        "max-header-bytes",
			Usage:       "reject containers whose declared header is larger than this",
			Value:       safetensors.DefaultMaxHeaderBytes,
			Destination: &maxHeaderBytes,
		},
	}
}

// setup loads the config file, applies it under explicit flags and installs
// the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configFile
	if path == "" {
		path = defaultConfigPath()
	}
	loaded, cfgErr := LoadConfig(path)
	cfg = loaded
	applyGlobalConfig(cmd, cfg)

	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return ctx, err
	}
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log := logger.New(errWriter(cmd), format, level)
	if cfgErr != nil {
		log.Warn("ignoring config file", "path", path, "error", cfgErr)
	}
	return logger.WithContext(ctx, log), nil
}

func newDecoder() *safetensors.Decoder {
	return safetensors.NewDecoder(safetensors.WithMaxHeaderBytes(maxHeaderBytes))
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
