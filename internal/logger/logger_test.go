package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})
	log.Debug("hidden")
	log.Info("batch started", "batch_id", "b1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "batch started", entry["msg"])
	assert.Equal(t, "b1", entry["batch_id"])
}

func TestNew_Text(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	New(Config{Level: slog.LevelDebug, Format: "text", Output: &buf}).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
