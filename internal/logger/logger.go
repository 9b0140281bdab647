package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New initialises a zap logger tuned for the provided environment.
func New(env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	level := zap.InfoLevel
	if env == "development" || env == "local" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build(zap.Fields(zap.String("service", "academic-tracker")))
}

// ZapError is a helper to avoid importing zap in every package.
func ZapError(err error) zap.Field {
	return zap.Error(err)
}
