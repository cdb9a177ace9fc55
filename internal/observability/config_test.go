package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/billfold/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfig(viper.New(), config.Config{Environment: "production", AppVersion: "1.2.0"})

	assert.Equal(t, "billfold", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQuery)
	assert.False(t, cfg.OtelEnabled)
	assert.InDelta(t, 0.1, cfg.OtelSamplingRatio, 1e-9)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigPrefersBillfoldVariables(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("BILLFOLD_LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "1.5")
	t.Setenv("BILLFOLD_LOG_SLOW_QUERY", "750ms")

	cfg := loadConfig(viper.New(), config.Config{AppName: "billfold-worker"})

	assert.Equal(t, "billfold-worker", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.OtelEnabled)
	assert.InDelta(t, 0.1, cfg.OtelSamplingRatio, 1e-9)
	assert.Equal(t, 750*time.Millisecond, cfg.SlowQuery)
	assert.True(t, cfg.Debug())
}

func TestDebugInDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "Local"}.Debug())
	assert.False(t, Config{Environment: "staging", LogLevel: "info"}.Debug())
}
