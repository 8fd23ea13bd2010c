package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/sizecache/internal/config"
)

func TestNew_FileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "sizebench.log")
	log, err := New(config.Log{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("cache built", zap.Int64("max_size", 1024))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1, "debug must be filtered at info level")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "cache built", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.EqualValues(t, 1024, rec["max_size"])
	assert.Contains(t, rec, "ts")
}

func TestNew_NoSinksIsNop(t *testing.T) {
	t.Parallel()

	log, err := New(config.Log{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.ErrorLevel))
}

func TestNew_Console(t *testing.T) {
	t.Parallel()

	log, err := New(config.Log{Level: "debug", Console: true})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNew_BadLevel(t *testing.T) {
	t.Parallel()

	_, err := New(config.Log{Level: "chatty"})
	require.Error(t, err)
}
