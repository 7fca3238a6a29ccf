// Package config loads service configuration from an optional config file
// and SALES_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all service configuration.
type Config struct {
	Port        string
	DatabaseURL string // empty → dataset comes from DataFile
	RedisURL    string // empty → no cache
	CacheTTL    time.Duration
	DataFile    string
	Workers     int
	LogLevel    slog.Level
	FlatRate    decimal.Decimal // rate of the flat bonus strategy
}

// Load reads configuration. Priority (highest to lowest):
//  1. environment variables with SALES_ prefix (e.g. SALES_DATABASE_URL)
//  2. config.yaml in the working directory or /etc/sales-analytics
//  3. built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/sales-analytics")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("SALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:        v.GetString("port"),
		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),
		CacheTTL:    v.GetDuration("cache_ttl"),
		DataFile:    v.GetString("data_file"),
		Workers:     v.GetInt("workers"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}

	rate, err := decimal.NewFromString(v.GetString("flat_bonus_rate"))
	if err != nil {
		return nil, fmt.Errorf("%w: flat_bonus_rate: %v", ErrInvalidConfig, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: flat_bonus_rate %s outside [0, 1]", ErrInvalidConfig, rate)
	}
	cfg.FlatRate = rate

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("data_file", "testdata/dataset.json")
	v.SetDefault("workers", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("flat_bonus_rate", "0.05")
}
