package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ScannerConfig holds general scan settings.
type ScannerConfig struct {
	Workers  string `yaml:"workers"` // "auto" or a number
	Headless bool   `yaml:"headless"`
}

// DiscoveryConfig tunes the search-page discovery collaborator.
type DiscoveryConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	UserAgent string  `yaml:"user_agent"`
}

// HistoryConfig tunes the daily snapshot sweep.
type HistoryConfig struct {
	SweepIntervalHrs int `yaml:"sweep_interval_hrs"`
}

// Config is the complete structure of the config.yml file.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	History   HistoryConfig   `yaml:"history"`
	Server    struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`
}

// Load reads config.yml, then a .env file if present, then process
// environment variables. Later sources win.
func Load(filepath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(filepath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No file means defaults plus environment.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	applyEnv(cfg)

	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("server port must be positive, got %d", cfg.Server.Port)
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Database.Path = "pricescout.db"
	cfg.Scanner.Workers = "auto"
	cfg.Scanner.Headless = true
	cfg.Discovery.Enabled = true
	cfg.Discovery.Threshold = 0.5
	cfg.History.SweepIntervalHrs = 24
	cfg.Server.Port = 8080
	cfg.Cache.TTLSeconds = 300
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SCANNER_WORKERS"); v != "" {
		cfg.Scanner.Workers = v
	}
	if v := os.Getenv("SCANNER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Scanner.Headless = b
		}
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = s
		}
	}
}

// CacheTTL converts the configured TTL into a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SweepInterval converts the configured sweep cadence into a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.History.SweepIntervalHrs) * time.Hour
}
