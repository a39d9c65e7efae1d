package observability

import (
	"math"
	"testing"

	"github.com/smallbiznis/estateloyalty/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "production",
		AppVersion:  "1.2.0",
		Telemetry: config.TelemetryConfig{
			OtelEnabled:   true,
			OTLPEndpoint:  " collector:4317 ",
			SamplingRatio: 0.1,
		},
	})

	assert.Equal(t, "estateloyalty", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.True(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigNormalizes(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName: "loyalty",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "DEBUG",
			LogFormat:     "Console",
			OtelEnabled:   true,
			OTLPProtocol:  "http/protobuf",
			SamplingRatio: 3,
		},
	})

	assert.Equal(t, "loyalty", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.False(t, cfg.OtelEnabled, "no endpoint means no exporter")
	assert.True(t, cfg.Debug())
}

func TestLoadConfigFallbacks(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "staging",
		Telemetry:   config.TelemetryConfig{LogLevel: "verbose", SamplingRatio: math.NaN()},
	})

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.0, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http")
	t.Setenv("OTEL_ENABLED", "off")

	cfg := LoadConfig(config.Load())

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "otel:4318", cfg.OtelExporterEndpoint)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.False(t, cfg.OtelEnabled)
}
