package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RISKGRAPH_HTTP_ADDR", "RISKGRAPH_SCENARIO_DIR", "RISKGRAPH_METRICS_ENABLED",
		"RISKGRAPH_ITERATIONS", "RISKGRAPH_WORKERS", "LOG_LEVEL", "LOG_FORMAT",
		"RISKGRAPH_TRACING_ENABLED", "RISKGRAPH_TRACING_EXPORTER", "RISKGRAPH_TRACING_SERVICE_NAME",
		"RISKGRAPH_OTLP_ENDPOINT", "RISKGRAPH_TRACING_SAMPLE_RATIO",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riskgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, cfg.Simulation.Iterations)
	assert.Equal(t, 1_000_000, cfg.Simulation.MaxIterations)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "riskgraph", cfg.Tracing.ServiceName)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
http:
  addr: "127.0.0.1:9000"
  read_timeout: 2s
simulation:
  iterations: 500
  workers: 4
logging:
  level: debug
  format: json
scenario_dir: ./scenarios
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.HTTP.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, 500, cfg.Simulation.Iterations)
	assert.Equal(t, 4, cfg.Simulation.Workers)
	assert.Equal(t, "./scenarios", cfg.ScenarioDir)
	assert.Equal(t, "debug", cfg.LoggerConfig().Level)
	assert.Equal(t, "json", cfg.LoggerConfig().Format)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "simulation:\n  iterations: 500\n")

	t.Setenv("RISKGRAPH_ITERATIONS", "2000")
	t.Setenv("RISKGRAPH_HTTP_ADDR", ":7070")
	t.Setenv("RISKGRAPH_METRICS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("RISKGRAPH_TRACING_ENABLED", "true")
	t.Setenv("RISKGRAPH_TRACING_EXPORTER", "otlp")
	t.Setenv("RISKGRAPH_OTLP_ENDPOINT", "otel:4317")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Simulation.Iterations)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)

	tracing := cfg.Tracing.Observability()
	assert.True(t, tracing.Enabled)
	assert.Equal(t, "otlp", tracing.Exporter)
	assert.Equal(t, "otel:4317", tracing.Endpoint)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeConfig(t, "simulation: [1, 2"))
		require.Error(t, err)
	})

	t.Run("non-integer env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RISKGRAPH_WORKERS", "many")
		_, err := Load("")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid values", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeConfig(t, "simulation:\n  iterations: 0\nlogging:\n  format: xml\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "simulation.iterations must be positive")
		assert.Contains(t, err.Error(), `logging.format "xml"`)
	})
}

func TestValidateIterationCeiling(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Iterations = cfg.Simulation.MaxIterations + 1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Simulation.MaxIterations = 0
	require.NoError(t, cfg.Validate(), "a zero ceiling disables the check")
}
