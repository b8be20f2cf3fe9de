package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestErrorLogFile(t *testing.T) {
	assert.Equal(t, "arbengine-error.log", ErrorLogFile("arbengine.log"))
	assert.Equal(t, "/var/log/arb/run-error.json", ErrorLogFile("/var/log/arb/run.json"))
	assert.Equal(t, "arbengine-error", ErrorLogFile("arbengine"))
	assert.Empty(t, ErrorLogFile(""))
}

func TestNewLogConfig(t *testing.T) {
	t.Cleanup(func() { SetDebug(false) })

	cfg := NewLogConfig(LogOptions{})
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.Equal(t, []string{"stderr"}, cfg.ErrorOutputPaths)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())

	file := filepath.Join(t.TempDir(), "engine.log")
	cfg = NewLogConfig(LogOptions{Debug: true, File: file})
	assert.Equal(t, []string{"stdout", file}, cfg.OutputPaths)
	assert.Equal(t, []string{"stderr", filepath.Join(filepath.Dir(file), "engine-error.log")}, cfg.ErrorOutputPaths)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.Equal(t, "timestamp", cfg.EncoderConfig.TimeKey)
}

func TestInitLoggerAndSetDebug(t *testing.T) {
	t.Cleanup(func() { SetDebug(false) })

	logger := InitLogger(LogOptions{})
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())
	assert.Same(t, logger, InitLogger(LogOptions{Debug: true}))

	SetDebug(false)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	SetDebug(true)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
