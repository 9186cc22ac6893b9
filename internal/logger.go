package internal

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Production gets compact console lines
// with ISO8601 times on stdout, so diagnostics interleave with the interactive
// prompt stream in one place; anything else (tests, ad-hoc runs) gets the
// development config, which writes to stderr. Stack traces are noise for an
// offline pipeline and stay off in both modes.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.OutputPaths = []string{"stdout"}
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}
