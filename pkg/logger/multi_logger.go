package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryJobs  LogCategory = "jobs"  // Job lifecycle events (JSON)
	CategoryError LogCategory = "error" // Application errors (JSON)
)

// MultiLogger writes categorized JSON events to one dated file per category.
// A nil *MultiLogger is valid and discards everything.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   []*os.File
	config  MultiLoggerConfig
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	levels := map[LogCategory]zapcore.Level{
		CategoryJobs:  level,
		CategoryError: zapcore.ErrorLevel,
	}
	for category, lvl := range levels {
		l, err := ml.createStructuredLogger(category, lvl)
		if err != nil {
			ml.Close()
			return nil, fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.loggers[category] = l
	}

	return ml, nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = ""

	file, err := os.OpenFile(ml.CategoryLogPath(category, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ml.files = append(ml.files, file)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core), nil
}

// CategoryLogPath returns the dated log file path of a category
func (ml *MultiLogger) CategoryLogPath(category LogCategory, day time.Time) string {
	filename := fmt.Sprintf("%s-%s.log", category, day.Format("20060102"))
	return filepath.Join(ml.config.LogsDir, filename)
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	if ml == nil {
		return zap.NewNop()
	}
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if l, ok := ml.loggers[category]; ok {
		return l
	}
	return ml.loggers[CategoryError]
}

// LogJobEvent logs a job lifecycle event with structured data
func (ml *MultiLogger) LogJobEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryJobs).Info(event, fields...)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.GetLogger(CategoryError).Error(msg, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	if ml == nil {
		return nil
	}
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var err error
	for _, l := range ml.loggers {
		err = multierr.Append(err, l.Sync())
	}
	return err
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	if ml == nil {
		return nil
	}
	err := ml.Sync()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, f := range ml.files {
		err = multierr.Append(err, f.Close())
	}
	ml.files = nil
	return err
}
