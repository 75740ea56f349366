// Package logging builds the zap loggers used across the service.
package logging

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Env selects the logger configuration.
type Env string

const (
	// EnvDevelopment produces human-readable console output.
	EnvDevelopment Env = "development"
	// EnvProduction produces structured JSON output.
	EnvProduction Env = "production"
)

// ParseEnv maps a configuration value onto an Env. Anything that is not
// "development" (or "dev") is treated as production.
func ParseEnv(s string) Env {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return EnvDevelopment
	default:
		return EnvProduction
	}
}

// New creates a zap logger for env. If zap fails to build, a no-op logger is
// returned so callers never have to handle a nil logger.
func New(env Env) *zap.Logger {
	var cfg zap.Config
	if env == EnvDevelopment {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.CallerKey = ""
		cfg.DisableStacktrace = true
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.DisableStacktrace = false
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Printf("failed to build zap logger for env %q, falling back to no-op logger: %v", env, err)
		return zap.NewNop()
	}
	return logger
}
