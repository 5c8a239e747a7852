package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf).With(String("component", "core"))

	log.Debug(context.Background(), "run finished",
		Int("iterations", 100),
		Int64("seed", 1<<40),
		Float64("elapsed_ms", 1.5),
		Err(errors.New("boom")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "core", entry["component"])
	assert.Equal(t, float64(100), entry["iterations"])
	assert.Equal(t, float64(1<<40), entry["seed"])
	assert.Equal(t, 1.5, entry["elapsed_ms"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn"}, &buf)

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")

	cfg := ConfigFromEnv()
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err, "request id %q is not a UUID", id)
	assert.Equal(t, id, RequestIDFromContext(ctx))

	again, sameID := EnsureRequestID(ctx)
	assert.Equal(t, id, sameID, "EnsureRequestID replaced an existing id")
	assert.Equal(t, id, RequestIDFromContext(again))

	preset := ContextWithRequestID(context.Background(), "client-supplied")
	_, got := EnsureRequestID(preset)
	assert.Equal(t, "client-supplied", got)
}

func TestLoggerContextRoundTrip(t *testing.T) {
	assert.Nil(t, LoggerFromContext(context.Background()))

	ctx, log := WithRequestLogger(context.Background(), nil)
	assert.NotEmpty(t, RequestIDFromContext(ctx), "WithRequestLogger did not attach a request id")

	ctx = ContextWithLogger(ctx, log)
	assert.NotNil(t, LoggerFromContext(ctx))
}
