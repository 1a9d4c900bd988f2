package logutil

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("pool released", "bytes", 64)
	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "bytes=64")
	assert.Contains(t, out, "source=logutil_test.go:")
}

func TestNewLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)

	logger.Log(t.Context(), LevelTrace, "kernel")
	assert.Contains(t, buf.String(), "level=TRACE")
}
