package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfig = "SAFEDUMP_CONFIG"

// Config mirrors ~/.config/safedump/config.yaml. Pointer fields distinguish
// "not set" from zero values.
type Config struct {
	MaxHeaderBytes *uint64 `yaml:"max_header_bytes"`
	LogLevel       string  `yaml:"log_level"`
	LogFormat      string  `yaml:"log_format"`

	// dump
	Compress string `yaml:"compress"`

	// serve
	ServerAddress string `yaml:"server_address"`
	MaxBodyBytes  *int64 `yaml:"max_body_bytes"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "safedump", "config.yaml")
}

// LoadConfig reads path. A missing file, or an empty path, yields a zero
// Config and no error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyGlobalConfig fills root flag variables from the config file when the
// flag was not given explicitly.
func applyGlobalConfig(c *cli.Command, conf Config) {
	if conf.MaxHeaderBytes != nil && !c.IsSet("max-header-bytes") {
		maxHeaderBytes = *conf.MaxHeaderBytes
	}
	if conf.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = conf.LogLevel
	}
	if conf.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = conf.LogFormat
	}
}

func applyDumpConfig(c *cli.Command, conf Config, compress *string) {
	if conf.Compress != "" && !c.IsSet("compress") {
		*compress = conf.Compress
	}
}

func applyServeConfig(c *cli.Command, conf Config, addr *string, maxBody *int64) {
	if conf.ServerAddress != "" && !c.IsSet("addr") {
		*addr = conf.ServerAddress
	}
	if conf.MaxBodyBytes != nil && !c.IsSet("max-body-bytes") {
		*maxBody = *conf.MaxBodyBytes
	}
}
