// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package commons

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface every component receives. It is a thin
// veneer over zap's sugared logger so that call sites stay terse
// (Infow/Warnw key-value pairs on the hot path, printf variants elsewhere).
type Logger interface {
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalf(template string, args ...interface{})
	Benchmark(name string, elapsed time.Duration)
	With(keysAndValues ...interface{}) Logger
	Sync() error
}

type applicationLogger struct {
	sugar *zap.SugaredLogger
}

// LoggerOption configures NewApplicationLogger.
type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	level    string
	filePath string
}

// WithLevel sets the minimum log level (debug, info, warn, error).
func WithLevel(level string) LoggerOption {
	return func(c *loggerConfig) { c.level = level }
}

// WithRotatingFile mirrors log output to a size-rotated file in addition
// to stderr.
func WithRotatingFile(path string) LoggerOption {
	return func(c *loggerConfig) { c.filePath = path }
}

// NewApplicationLogger builds the process-wide Logger. Defaults to info
// level on stderr; WithRotatingFile adds a lumberjack-rotated sink.
func NewApplicationLogger(opts ...LoggerOption) (Logger, error) {
	cfg := loggerConfig{level: "info"}
	for _, opt := range opts {
		opt(&cfg)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	level := parseLevel(cfg.level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level),
	}
	if cfg.filePath != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.filePath,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotated), level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &applicationLogger{sugar: base.Sugar()}, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *applicationLogger) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l *applicationLogger) Infof(t string, args ...interface{}) {
	l.sugar.Infof(t, args...)
}
func (l *applicationLogger) Infow(msg string, kv ...interface{}) { l.sugar.Infow(msg, kv...) }
func (l *applicationLogger) Debugf(t string, args ...interface{}) {
	l.sugar.Debugf(t, args...)
}
func (l *applicationLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *applicationLogger) Warnf(t string, args ...interface{}) {
	l.sugar.Warnf(t, args...)
}
func (l *applicationLogger) Warnw(msg string, kv ...interface{}) { l.sugar.Warnw(msg, kv...) }
func (l *applicationLogger) Errorf(t string, args ...interface{}) {
	l.sugar.Errorf(t, args...)
}
func (l *applicationLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *applicationLogger) Fatalf(t string, args ...interface{}) {
	l.sugar.Fatalf(t, args...)
}

// Benchmark logs a named duration at debug level. Used around connection
// setup and other latency-sensitive stages.
func (l *applicationLogger) Benchmark(name string, elapsed time.Duration) {
	l.sugar.Debugw("benchmark", "stage", name, "elapsed_ms", elapsed.Milliseconds())
}

func (l *applicationLogger) With(kv ...interface{}) Logger {
	return &applicationLogger{sugar: l.sugar.With(kv...)}
}

func (l *applicationLogger) Sync() error { return l.sugar.Sync() }
