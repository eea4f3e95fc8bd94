package logger

import (
	"log/slog"
	"strings"
)

// Config holds logger settings loaded from the environment.
type Config struct {
	Service string `env:"LOG_SERVICE" envDefault:"hubd"`
	Env     string `env:"APP_ENV" envDefault:"development"`
	Level   string `env:"LOG_LEVEL"`
	Format  string `env:"LOG_FORMAT"`
}

// NewFromConfig creates a logger from cfg. Environment defaults apply first;
// explicit Level and Format override them.
func NewFromConfig(cfg Config, opts ...Option) *slog.Logger {
	base := []Option{WithEnvironment(cfg.Env, cfg.Service)}
	if cfg.Level != "" {
		base = append(base, WithLevel(ParseLevel(cfg.Level)))
	}
	if cfg.Format != "" {
		base = append(base, WithFormat(Format(strings.ToLower(cfg.Format))))
	}
	return New(append(base, opts...)...)
}

// ParseLevel maps a level name to slog.Level. Unknown names yield Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
