package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{
		Level:  "WARN",
		Format: "json",
		Output: zapcore.AddSync(&buf),
		Fields: []zap.Field{zap.String("app", "skillswap")},
	})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept", zap.String("swapId", "s1"))
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "skillswap", entry["app"])
	assert.Equal(t, "s1", entry["swapId"])
	assert.Contains(t, entry, "time")
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud", Format: "json"})
	assert.ErrorContains(t, err, "invalid log level")

	_, err = New(Options{Level: "info", Format: "xml"})
	assert.ErrorContains(t, err, "invalid log format")
}
