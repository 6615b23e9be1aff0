package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_WritesJSON(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "log.json")

	l, err := NewLogger(context.Background(), LoggerConfig{
		ServiceName: "test-service",
		OutputPaths: []string{out},
	})
	require.NoError(t, err)

	l.Info("hello", WithSource("/tmp/memfile"), WithRange(4, 8))
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))

	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "/tmp/memfile", entry["source.path"])
	assert.Equal(t, map[string]any{"begin": float64(4), "end": float64(8)}, entry["range"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "pid")
}

func TestNewLogger_DebugLevel(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "log.json")

	l, err := NewLogger(context.Background(), LoggerConfig{
		ServiceName: "test-service",
		IsDebug:     true,
		OutputPaths: []string{out},
	})
	require.NoError(t, err)

	l.Debug("chunk fetched", zap.Int64("chunk", 3))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))

	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "chunk fetched", entry["message"])
	assert.Equal(t, float64(3), entry["chunk"])
}

func TestNewLogger_Internal(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(context.Background(), LoggerConfig{
		ServiceName: "test-service",
		IsInternal:  true,
		OutputPaths: []string{filepath.Join(t.TempDir(), "log.json")},
	})
	require.NoError(t, err)

	l.Info("exported")
	assert.NotNil(t, l.Core())
}
