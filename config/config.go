// Package config holds the settings of the generation tools, read from a
// YAML file and overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel      string  `yaml:"loglevel"`
	CellsPerBeat  int     `yaml:"cellsperbeat"`
	PreCellWindow float64 `yaml:"precellwindow"`
	MaxFitDegrees int     `yaml:"maxfitdegrees"`
	OutputDir     string  `yaml:"outputdir"`
}

// Environment variables overriding the config file.
const (
	EnvLogLevel      = "COMPER_LOG_LEVEL"
	EnvOutputDir     = "COMPER_OUTPUT_DIR"
	EnvCellsPerBeat  = "COMPER_CELLS_PER_BEAT"
	EnvMaxFitDegrees = "COMPER_MAX_FIT_DEGREES"
)

var ErrInvalidConfig = errors.New("invalid config")

func Default() Config {
	return Config{
		LogLevel:      "info",
		CellsPerBeat:  4,
		PreCellWindow: 0.1,
		MaxFitDegrees: 8,
	}
}

// Load reads the config file at path on top of the defaults. An empty path
// skips the file. A .env file in the working directory, if any, is loaded
// into the environment before the environment overrides are applied.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("could not read config %v: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("could not parse config %v: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("could not load .env: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	for _, e := range []struct {
		name string
		dst  *int
	}{{EnvCellsPerBeat, &c.CellsPerBeat}, {EnvMaxFitDegrees, &c.MaxFitDegrees}} {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, e.name, v)
		}
		*e.dst = n
	}
	return nil
}

// Validate checks the values are usable.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.CellsPerBeat < 1 {
		return fmt.Errorf("%w: cells per beat %d", ErrInvalidConfig, c.CellsPerBeat)
	}
	if c.PreCellWindow < 0 {
		return fmt.Errorf("%w: pre-cell window %v", ErrInvalidConfig, c.PreCellWindow)
	}
	if c.MaxFitDegrees < 1 {
		return fmt.Errorf("%w: max fit degrees %d", ErrInvalidConfig, c.MaxFitDegrees)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
