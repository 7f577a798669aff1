package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger writing to stderr. When debug is true, uses development
// config (human-readable, debug level); otherwise production config (JSON, info level).
// Every entry carries service=brandguard. opts are passed to the zap builder.
func NewLogger(debug bool, opts ...zap.Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "brandguard")), nil
}
