package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/billfold/internal/config"
	"github.com/spf13/viper"
)

const defaultSlowQuery = 200 * time.Millisecond

// Config holds the logging and tracing settings of the billfold process.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
	// SlowQuery is the duration above which a SQL statement is logged at
	// warn level.
	SlowQuery time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelSamplingRatio    float64
}

// LoadConfig reads BILLFOLD_-prefixed environment variables. The
// unprefixed LOG_* and OTEL_* names collectors usually export are accepted
// as fallbacks.
func LoadConfig(cfg config.Config) Config {
	return loadConfig(viper.New(), cfg)
}

func loadConfig(v *viper.Viper, cfg config.Config) Config {
	v.SetEnvPrefix("BILLFOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("log.level", "BILLFOLD_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "BILLFOLD_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("otel.enabled", "BILLFOLD_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("otel.endpoint", "BILLFOLD_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("otel.sampling_ratio", "BILLFOLD_OTEL_SAMPLING_RATIO", "OTEL_SAMPLING_RATIO")

	v.SetDefault("service.name", "billfold")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.slow_query", defaultSlowQuery)
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("otel.sampling_ratio", 0.1)
	if name := strings.TrimSpace(cfg.AppName); name != "" {
		v.SetDefault("service.name", name)
	}
	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("version", cfg.AppVersion)

	ratio := v.GetFloat64("otel.sampling_ratio")
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	slow := v.GetDuration("log.slow_query")
	if slow <= 0 {
		slow = defaultSlowQuery
	}

	return Config{
		ServiceName:          strings.TrimSpace(v.GetString("service.name")),
		Environment:          strings.TrimSpace(v.GetString("environment")),
		Version:              strings.TrimSpace(v.GetString("version")),
		LogLevel:             strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
		LogFormat:            strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		SlowQuery:            slow,
		OtelEnabled:          v.GetBool("otel.enabled"),
		OtelExporterEndpoint: strings.TrimSpace(v.GetString("otel.endpoint")),
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on stack traces and console-friendly output.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
