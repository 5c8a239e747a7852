// Package config loads simulator settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/riskgraph-simulator/internal/logging"
	"github.com/signalsfoundry/riskgraph-simulator/internal/observability"
	"gopkg.in/yaml.v3"
)

// DefaultIterations is used when neither the request nor the config sets one.
const DefaultIterations = 10000

// DefaultMaxIterations caps a single run. Each committed iteration keeps
// one float64 per result node until the run is summarised.
const DefaultMaxIterations = 1_000_000

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level settings document.
type Config struct {
	HTTP        HTTPConfig       `yaml:"http"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Logging     LoggingConfig    `yaml:"logging"`
	Tracing     TracingConfig    `yaml:"tracing"`
	ScenarioDir string           `yaml:"scenario_dir"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes caps uploaded graph documents.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SimulationConfig holds engine defaults.
type SimulationConfig struct {
	Iterations int `yaml:"iterations"`
	// Workers of 0 means GOMAXPROCS.
	Workers       int `yaml:"workers"`
	MaxIterations int `yaml:"max_iterations"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in settings.
func Default() *Config {
	tracing := observability.DefaultTracingConfig()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Metrics: MetricsConfig{Enabled: true},
		Simulation: SimulationConfig{
			Iterations:    DefaultIterations,
			MaxIterations: DefaultMaxIterations,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			Enabled:     tracing.Enabled,
			ServiceName: tracing.ServiceName,
			Exporter:    tracing.Exporter,
			SampleRatio: tracing.SampleRatio,
		},
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides. A missing file is an error only when path was given
// explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies RISKGRAPH_* variables plus LOG_LEVEL/LOG_FORMAT
// and the tracing variables understood by observability.ApplyTracingEnv.
func (c *Config) applyEnvOverrides() error {
	if addr := os.Getenv("RISKGRAPH_HTTP_ADDR"); addr != "" {
		c.HTTP.Addr = addr
	}
	if dir := os.Getenv("RISKGRAPH_SCENARIO_DIR"); dir != "" {
		c.ScenarioDir = dir
	}
	if raw := os.Getenv("RISKGRAPH_METRICS_ENABLED"); raw != "" {
		c.Metrics.Enabled = strings.EqualFold(raw, "true")
	}
	if err := envInt("RISKGRAPH_ITERATIONS", &c.Simulation.Iterations); err != nil {
		return err
	}
	if err := envInt("RISKGRAPH_WORKERS", &c.Simulation.Workers); err != nil {
		return err
	}

	logCfg := logging.ConfigFromEnv()
	if logCfg.Level != "" {
		c.Logging.Level = logCfg.Level
	}
	if logCfg.Format != "" {
		c.Logging.Format = logCfg.Format
	}

	tracing := observability.ApplyTracingEnv(c.Tracing.Observability())
	c.Tracing = TracingConfig{
		Enabled:     tracing.Enabled,
		ServiceName: tracing.ServiceName,
		Exporter:    tracing.Exporter,
		Endpoint:    tracing.Endpoint,
		SampleRatio: tracing.SampleRatio,
	}
	return nil
}

func envInt(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	*dst = v
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Simulation.Iterations <= 0 {
		problems = append(problems, fmt.Sprintf("simulation.iterations must be positive, got %d", c.Simulation.Iterations))
	}
	if c.Simulation.Workers < 0 {
		problems = append(problems, fmt.Sprintf("simulation.workers must not be negative, got %d", c.Simulation.Workers))
	}
	if c.Simulation.MaxIterations > 0 && c.Simulation.Iterations > c.Simulation.MaxIterations {
		problems = append(problems, fmt.Sprintf("simulation.iterations %d exceeds simulation.max_iterations %d",
			c.Simulation.Iterations, c.Simulation.MaxIterations))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		problems = append(problems, "http.max_body_bytes must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		problems = append(problems, fmt.Sprintf("tracing.sample_ratio %v is outside [0, 1]", c.Tracing.SampleRatio))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not text or json", c.Logging.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}

// Observability converts the tracing section for observability.InitTracing.
func (t TracingConfig) Observability() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		SampleRatio: t.SampleRatio,
	}
}
