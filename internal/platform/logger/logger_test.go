package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(newHandler(DefaultConfig(), &buf)).Info("chunks added", "chunks", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "chunks added", entry["msg"])
		assert.EqualValues(t, 3, entry["chunks"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(newHandler(Config{Level: slog.LevelInfo, Format: "text"}, &buf)).Info("hello", "query", "q")
		assert.Contains(t, buf.String(), "msg=hello")
		assert.Contains(t, buf.String(), "query=q")
	})

	t.Run("レベル未満は出力しない", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(newHandler(Config{Level: slog.LevelWarn}, &buf)).Info("ignored")
		assert.Empty(t, buf.String())
	})
}

func TestNew_WritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "app.log")
	logger := New(Config{Level: slog.LevelInfo, Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 1})
	logger.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Same(t, logger, slog.Default())
}
