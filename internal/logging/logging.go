// Package logging provides the structured logging stack used across this
// module: a logrus-backed logger builder, a context-aware field-carrying
// wrapper, and an output splitter that routes error-level records to
// stderr so containerized deployments can treat the two streams
// differently.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus's level names without leaking the logrus import
// into callers that only need to pick a level from configuration.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Config configures a logger built by New.
type Config struct {
	Level      Level
	Format     string // "json" or "text"
	Service    string
	AddCaller  bool
	TimeFormat string
}

// DefaultConfig mirrors the defaults this codebase ships with out of the box.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: "text", TimeFormat: time.RFC3339}
}

// OutputSplitter routes formatted log lines to stderr when they carry
// logrus's "level=error" (or fatal) marker, and to stdout otherwise.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// New builds a logrus.Logger from Config, routed through OutputSplitter.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	case LevelFatal:
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: cfg.TimeFormat, FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)
	logger.SetOutput(OutputSplitter{})
	return logger
}

// ContextLogger carries a fixed set of fields (provider label, component
// name, ...) across a chain of related log calls.
type ContextLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// NewContextLogger wraps logger with an initial field set.
func NewContextLogger(logger *logrus.Logger, fields map[string]interface{}) *ContextLogger {
	if logger == nil {
		logger = New(DefaultConfig())
	}
	merged := make(logrus.Fields, len(fields))
	for k, v := range fields {
		merged[k] = v
	}
	return &ContextLogger{logger: logger, fields: merged}
}

func (cl *ContextLogger) clone(extra logrus.Fields) *ContextLogger {
	merged := make(logrus.Fields, len(cl.fields)+len(extra))
	for k, v := range cl.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &ContextLogger{logger: cl.logger, fields: merged}
}

func (cl *ContextLogger) WithField(key string, value interface{}) *ContextLogger {
	return cl.clone(logrus.Fields{key: value})
}

func (cl *ContextLogger) WithFields(fields map[string]interface{}) *ContextLogger {
	extra := make(logrus.Fields, len(fields))
	for k, v := range fields {
		extra[k] = v
	}
	return cl.clone(extra)
}

func (cl *ContextLogger) WithError(err error) *ContextLogger {
	if err == nil {
		return cl
	}
	return cl.clone(logrus.Fields{"error": err.Error(), "error_type": fmt.Sprintf("%T", err)})
}

// WithContext pulls well-known trace identifiers out of ctx, if present.
func (cl *ContextLogger) WithContext(ctx context.Context) *ContextLogger {
	extra := logrus.Fields{}
	if v := ctx.Value(requestIDKey{}); v != nil {
		extra["request_id"] = v
	}
	if len(extra) == 0 {
		return cl
	}
	return cl.clone(extra)
}

type requestIDKey struct{}

// WithRequestID returns a context carrying requestID for WithContext to pick up.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func (cl *ContextLogger) Debug(msg string) { cl.logger.WithFields(cl.fields).Debug(msg) }
func (cl *ContextLogger) Info(msg string)  { cl.logger.WithFields(cl.fields).Info(msg) }
func (cl *ContextLogger) Warn(msg string)  { cl.logger.WithFields(cl.fields).Warn(msg) }
func (cl *ContextLogger) Error(msg string) { cl.logger.WithFields(cl.fields).Error(msg) }

func (cl *ContextLogger) Debugf(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Debugf(format, args...)
}
func (cl *ContextLogger) Infof(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Infof(format, args...)
}
func (cl *ContextLogger) Warnf(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Warnf(format, args...)
}
func (cl *ContextLogger) Errorf(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Errorf(format, args...)
}

// LogOperation logs start/end of fn, including duration and any error.
func LogOperation(logger *ContextLogger, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	entry := logger.WithFields(map[string]interface{}{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("operation failed")
		return err
	}
	entry.Info("operation completed")
	return nil
}
