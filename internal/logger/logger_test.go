package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"tempmail/disposable/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LogConfig{Level: "warn", Development: true, File: "/tmp/x.log"})

	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Development)
	assert.Equal(t, "/tmp/x.log", cfg.LogFile)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.True(t, cfg.Compress)
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := NewLogger(Config{Level: "not-a-level"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	log, err := NewLogger(Config{Level: "info", LogFile: path, MaxSize: 1})
	require.NoError(t, err)

	log.Info("address generated")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "address generated")
}

func TestNewFileLogger_NoFileIsNop(t *testing.T) {
	log, err := NewFileLogger(Config{})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}
