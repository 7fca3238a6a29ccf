package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/sales-analytics/internal/config"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "0.05", cfg.FlatRate.String())
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("SALES_PORT", "9090")
	t.Setenv("SALES_WORKERS", "4")
	t.Setenv("SALES_LOG_LEVEL", "debug")
	t.Setenv("SALES_CACHE_TTL", "2m")
	t.Setenv("SALES_FLAT_BONUS_RATE", "0.1")

	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "0.1", cfg.FlatRate.String())
}

func TestFromViper_YAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
port: "7000"
data_file: /data/sales.json
workers: 8
`)))

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "/data/sales.json", cfg.DataFile)
	assert.Equal(t, 8, cfg.Workers)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero workers", "SALES_WORKERS", "0"},
		{"bad level", "SALES_LOG_LEVEL", "loud"},
		{"rate above one", "SALES_FLAT_BONUS_RATE", "1.5"},
		{"rate not a number", "SALES_FLAT_BONUS_RATE", "five"},
		{"zero ttl", "SALES_CACHE_TTL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.FromViper(viper.New())
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}
