package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestLogger_DerivedLoggersShareSink(t *testing.T) {
	root := NewTestLogger()
	child := root.WithField("component", "planner")

	child.Warn(context.Background(), "defaulted action", map[string]interface{}{"token": "frobnicate"})

	entries := root.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "planner", entries[0].Fields["component"])
	assert.Equal(t, "frobnicate", entries[0].Fields["token"])
	assert.True(t, root.HasMessage("warn", "defaulted action"))
}

func TestTestLogger_SessionFromContext(t *testing.T) {
	log := NewTestLogger()
	ctx := ContextWithSession(context.Background(), "sess-1")

	log.Info(ctx, "hello", nil)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1", entries[0].Fields["session_id"])
}

func TestTestLogger_Reset(t *testing.T) {
	log := NewTestLogger()
	log.Error(context.Background(), "boom", nil)
	log.Reset()
	assert.Empty(t, log.Entries())
}

func TestLogrusLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrusLoggerWithOptions(Options{Level: "debug", Output: &buf})
	ctx := ContextWithSession(context.Background(), "abc")

	log.WithField("component", "executor").Info(ctx, "step finished", map[string]interface{}{"step": 2})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "step finished", line["msg"])
	assert.Equal(t, "executor", line["component"])
	assert.Equal(t, "abc", line["session_id"])
	assert.Equal(t, float64(2), line["step"])
}

func TestLogrusLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrusLoggerWithOptions(Options{Level: "nonsense", Output: &buf})

	log.Debug(context.Background(), "hidden", nil)
	assert.Empty(t, buf.String())

	log.Info(context.Background(), "shown", nil)
	assert.Contains(t, buf.String(), "shown")
}
