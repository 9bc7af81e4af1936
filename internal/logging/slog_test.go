package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlog_NilFallsBackToDefault(t *testing.T) {
	logger := NewSlog(nil)
	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestSlogLogger_TextLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogText(buf, slog.LevelDebug)

	logger.Debug("flush scheduled", "depth", 12)
	logger.Info("connection state changed", "to", "Connected")
	logger.Warn("message dropped", "reason", "parse")
	logger.Error("reconnect attempts exhausted", "attempts", 3)

	output := buf.String()
	assert.Contains(t, output, "level=DEBUG")
	assert.Contains(t, output, "depth=12")
	assert.Contains(t, output, "to=Connected")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "reason=parse")
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, "attempts=3")
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogText(buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Empty(t, buf.String())

	logger.Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestSlogLogger_JSONWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogJSON(buf, slog.LevelInfo).With("session", "s-1")

	logger.Info("diff applied", "added", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "diff applied", record["msg"])
	assert.Equal(t, "s-1", record["session"])
	assert.InDelta(t, 2, record["added"], 0)
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	logger := NewNop()
	require.NotPanics(t, func() {
		logger.Debug("d", "k", 1)
		logger.Info("i")
		logger.Warn("w")
		logger.Error("e")
		logger.Fatal("f")
	})
}
