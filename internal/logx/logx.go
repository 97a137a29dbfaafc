// Package logx provides structured logging built on zap.
package logx

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger to provide a consistent interface.
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
	scope string
}

var globalLogger *Logger

func init() {
	globalLogger = build("info", "console")
}

// IsLocalDev checks if the environment is local development.
func IsLocalDev(appEnv string) bool {
	return appEnv == "local" || appEnv == "dev" || appEnv == "development"
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func getLoggerConfig() zap.Config {
	config := zap.NewProductionConfig()
	config.Development = false
	config.DisableCaller = false
	config.DisableStacktrace = false
	config.Sampling = nil

	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.Encoding = "console"
	return config
}

func build(level, format string) *Logger {
	config := getLoggerConfig()

	switch strings.ToLower(format) {
	case "json":
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	default:
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl := parseLevel(level)
	if IsLocalDev(os.Getenv("APP_ENV")) {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	zapLogger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{zap: zapLogger, sugar: zapLogger.Sugar()}
}

// Init configures the global logger.
func Init(level, format string) {
	globalLogger = build(level, format)
}

// L returns the global sugar logger for key-value style logging.
func L() *zap.SugaredLogger {
	return globalLogger.sugar
}

// GetLogger returns the underlying zap logger for advanced usage.
func GetLogger() *zap.Logger {
	return globalLogger.zap
}

// GetScope returns a logger named after the given scope, derived from the
// global logger. Scope loggers created before Init keep the default config.
func GetScope(scope string) *Logger {
	zl := globalLogger.zap.Named(scope)
	return &Logger{zap: zl, sugar: zl.Sugar(), scope: scope}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
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

// Close flushes any buffered log entries.
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// Sugar returns the sugar logger for key-value style logging.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Debug logs a debug message with structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

// Info logs an info message with structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Warn logs a warning message with structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs an error message with structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, fields...)
}
