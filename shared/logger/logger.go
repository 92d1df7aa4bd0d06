// Package logger builds the structured logger shared by the collectors and
// the audit pipeline.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to stderr. level takes precedence over
// LOG_LEVEL; both default to warn so console output stays readable.
func New(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level.SetLevel(zapcore.WarnLevel)

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level.SetLevel(parsed)
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	return config.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
