package utils

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogFile is where the CLI logs when no file is given
const DefaultLogFile = "arbengine.log"

var (
	log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	once  sync.Once
)

// LogOptions selects the level and destinations of the global logger
type LogOptions struct {
	Debug bool
	// File receives every entry, and a sibling -error file receives errors.
	// Empty logs to the console only.
	File string
}

// ErrorLogFile returns the file error entries go to for a log file,
// arbengine.log -> arbengine-error.log
func ErrorLogFile(file string) string {
	if file == "" {
		return ""
	}
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + "-error" + ext
}

// NewLogConfig builds the zap configuration for opts. The level is shared
// with the global logger so SetDebug applies to it.
func NewLogConfig(opts LogOptions) zap.Config {
	config := zap.NewProductionConfig()
	config.Level = level
	if opts.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if opts.File != "" {
		config.OutputPaths = append(config.OutputPaths, opts.File)
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, ErrorLogFile(opts.File))
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = "stacktrace"
	return config
}

// InitLogger initializes the global logger instance. Only the first call
// builds it; later calls return the same logger.
func InitLogger(opts LogOptions) *zap.Logger {
	once.Do(func() {
		logger, err := NewLogConfig(opts).Build(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		if err != nil {
			panic(err)
		}

		log = logger
	})

	return log
}

// SetDebug switches the global logger between debug and info level
func SetDebug(enabled bool) {
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(LogOptions{File: DefaultLogFile})
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
