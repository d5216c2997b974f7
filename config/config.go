package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MaxCallDepth   int     `yaml:"maxCallDepth"`
	LogLevel       string  `yaml:"logLevel"`
	TopLevelReturn bool    `yaml:"topLevelReturn"`
	Modules        Modules `yaml:"modules"`
}

type Modules struct {
	SQL  SQL  `yaml:"sql"`
	Text Text `yaml:"text"`
}

// SQL configures the sql native module. It is disabled when Driver is empty.
type SQL struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Text struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		MaxCallDepth:   512,
		LogLevel:       "warn",
		TopLevelReturn: true,
		Modules: Modules{
			SQL:  SQL{Driver: "", DSN: ""},
			Text: Text{Enabled: true},
		},
	}
}

// Load reads a YAML file over Default. Keys absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	if c.MaxCallDepth <= 0 {
		err = errors.Join(err, fmt.Errorf("maxCallDepth must be positive, got %d", c.MaxCallDepth))
	}
	if _, lerr := c.Level(); lerr != nil {
		err = errors.Join(err, lerr)
	}
	if c.Modules.SQL.Driver != "" && c.Modules.SQL.DSN == "" {
		err = errors.Join(err, fmt.Errorf("modules.sql.dsn is required for driver %s", c.Modules.SQL.Driver))
	}
	return err
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
}
