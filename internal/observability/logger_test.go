package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFieldMap(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "test-svc"})

	log.WithField(FieldRunID, "run-1").Info("stage finished")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stage finished", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test-svc", entry["service"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry["file"], "logger_test.go:")
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&LogConfig{Level: "warn", Output: &buf})

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&LogConfig{Level: "debug", Format: "text", Output: &buf})

	log.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&LogConfig{Level: "loud", Output: &buf})

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	log := NewLogger(&LogConfig{Output: &buf})
	ctx := log.WithContext(context.Background())
	ctx = ContextWithFields(ctx, Fields{FieldRequestID: "req-42"})

	assert.Equal(t, "req-42", RequestID(ctx))
	FromContext(ctx).Info("x")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestSync_NoFile(t *testing.T) {
	assert.NoError(t, Sync())
}
