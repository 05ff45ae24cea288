package utils

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger   *zap.Logger
	sugar    *zap.SugaredLogger
)

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = logLevel
	cfg.DisableStacktrace = true
	logger, _ = cfg.Build(zap.AddCallerSkip(1))
	sugar = logger.Sugar()
}

// SetLogLevel sets the log level.
func SetLogLevel(level string) {
	if level == "" {
		return // use default
	}
	level = strings.TrimSpace(strings.ToLower(level))
	switch level {
	case "debug":
		logLevel.SetLevel(zapcore.DebugLevel)
	case "info":
		logLevel.SetLevel(zapcore.InfoLevel)
	case "warning":
		logLevel.SetLevel(zapcore.WarnLevel)
	case "error":
		logLevel.SetLevel(zapcore.ErrorLevel)
	default:
		panic("invalid log level: " + level)
	}
}

// Logger returns the structured logger for call sites that log typed fields.
func Logger() *zap.Logger {
	return zap.New(logger.Core())
}

func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

func Warningf(format string, args ...interface{}) {
	sugar.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}
