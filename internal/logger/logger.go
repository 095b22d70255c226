package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init replaces zap's global logger. Production gets JSON output, every
// other environment gets the colored console encoder.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)

	switch env {
	case "production", "prod":
		l, err = zap.NewProduction()
	default:
		conf := zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = conf.Build()
	}
	if err != nil {
		return fmt.Errorf("failed to build zap logger for %q -> %w", env, err)
	}

	zap.ReplaceGlobals(l)

	return nil
}
