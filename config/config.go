// Package config loads the scopegrab configuration file.
//
// The file is YAML. A JSON object is accepted as well, so a config.json holding
// only "default_hostname" and "default_save_path" keeps working. Missing keys
// keep their defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/lxi"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "scopegrab.yaml"

// CurrentDirectory is the save path placeholder for the working directory.
const CurrentDirectory = "$cwd"

// Config holds the user settings.
type Config struct {
	DefaultHostname string        `yaml:"default_hostname"`
	DefaultSavePath string        `yaml:"default_save_path"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	TransferWindow  time.Duration `yaml:"transfer_window"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ConnectRetries  int           `yaml:"connect_retries"`
	MaxIdleReads    int           `yaml:"max_idle_reads"`
	OPCSync         int           `yaml:"opc_sync"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DefaultSavePath: CurrentDirectory,
		Port:            lxi.DefaultPort,
		ReadTimeout:     lxi.DefaultReadTimeout,
		TransferWindow:  lxi.DefaultTransferWindow,
		ConnectTimeout:  lxi.DefaultConnectTimeout,
		ConnectRetries:  lxi.DefaultConnectRetries,
		LogLevel:        "info",
	}
}

// Load reads the file at path on top of the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return cfg.Validate()
}

// Validate checks every setting against the limits of the session options.
func (c *Config) Validate() error {
	if _, err := lxi.NewConnectionConfig("localhost", c.Port, c.SessionOptions()...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// SavePath returns the directory captures are written to, resolving the
// "$cwd" placeholder.
func (c *Config) SavePath() (string, error) {
	if c.DefaultSavePath == "" || c.DefaultSavePath == CurrentDirectory {
		return os.Getwd()
	}

	return c.DefaultSavePath, nil
}

// Level returns the parsed log level.
func (c *Config) Level() logger.Level {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.InfoLevel
	}

	return level
}

// SessionOptions maps the settings onto lxi session options.
func (c *Config) SessionOptions() []lxi.ConnOption {
	return []lxi.ConnOption{
		lxi.WithReadTimeout(c.ReadTimeout),
		lxi.WithTransferWindow(c.TransferWindow),
		lxi.WithConnectTimeout(c.ConnectTimeout),
		lxi.WithConnectRetries(c.ConnectRetries),
		lxi.WithMaxIdleReads(c.MaxIdleReads),
		lxi.WithOPCSync(c.OPCSync),
	}
}
