// Package config loads layered application configuration: built-in defaults,
// then an optional YAML file, then BOOKREC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/shelfmate/bookrec/pkg/seed"
	"github.com/shelfmate/bookrec/pkg/store"
)

// DefaultConfigPaths lists where config files are searched, in order. The
// first existing file wins.
var DefaultConfigPaths = []string{
	"bookrec.yaml",
	"bookrec.yml",
	"/etc/bookrec/config.yaml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "BOOKREC_CONFIG"

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Seed     SeedConfig     `koanf:"seed"`
	Bench    BenchConfig    `koanf:"bench"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type DatabaseConfig struct {
	Path       string `koanf:"path"`
	Dimensions int    `koanf:"dimensions"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type SeedConfig struct {
	Books   int   `koanf:"books"`
	Ratings int   `koanf:"ratings"`
	Readers int   `koanf:"readers"`
	Seed    int64 `koanf:"seed"`
}

type BenchConfig struct {
	Runs    int `koanf:"runs"`
	Limit   int `koanf:"limit"`
	DelayMS int `koanf:"delay_ms"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:       "bookrec.db",
			Dimensions: store.DefaultVectorDim,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Seed: SeedConfig{
			Books:   seed.DefaultBooks,
			Ratings: seed.DefaultRatings,
			Readers: seed.DefaultReaders,
			Seed:    1,
		},
		Bench: BenchConfig{
			Runs:    20,
			Limit:   5,
			DelayMS: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// BOOKREC_* environment variables, in rising precedence. An explicit
// non-empty path must exist; the search-path file is optional.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("BOOKREC_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must not be empty")
	}
	if c.Database.Dimensions <= 0 {
		return fmt.Errorf("config: database.dimensions must be positive, got %d", c.Database.Dimensions)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Bench.Runs <= 0 || c.Bench.Limit <= 0 {
		return fmt.Errorf("config: bench.runs and bench.limit must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// Addr returns the host:port the dashboard listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps BOOKREC_* variables to config paths. Unknown variables
// are dropped rather than guessed at.
//
//	BOOKREC_DATABASE_PATH  -> database.path
//	BOOKREC_SERVER_PORT    -> server.port
//	BOOKREC_LOG_LEVEL      -> logging.level
func envTransform(key string) string {
	mappings := map[string]string{
		"BOOKREC_DATABASE_PATH":       "database.path",
		"BOOKREC_DATABASE_DIMENSIONS": "database.dimensions",
		"BOOKREC_SERVER_HOST":         "server.host",
		"BOOKREC_SERVER_PORT":         "server.port",
		"BOOKREC_SEED_BOOKS":          "seed.books",
		"BOOKREC_SEED_RATINGS":        "seed.ratings",
		"BOOKREC_SEED_READERS":        "seed.readers",
		"BOOKREC_SEED_SEED":           "seed.seed",
		"BOOKREC_BENCH_RUNS":          "bench.runs",
		"BOOKREC_BENCH_LIMIT":         "bench.limit",
		"BOOKREC_BENCH_DELAY_MS":      "bench.delay_ms",
		"BOOKREC_LOG_LEVEL":           "logging.level",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
