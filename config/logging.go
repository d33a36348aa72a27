package config

import (
	"log/slog"
	"strings"
)

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// File, when set, receives a copy of every log line and is rotated by size.
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB"  envDefault:"1"`
	MaxBackups int    `env:"LOG_FILE_MAX_BACKUPS"  envDefault:"5"`
	MaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"0"`
	Compress   bool   `env:"LOG_FILE_COMPRESS"     envDefault:"false"`
}

// Sanitize clamps rotation settings.
func (l *LoggingConfig) Sanitize() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	l.File = strings.TrimSpace(l.File)
	if l.MaxSizeMB < 1 {
		l.MaxSizeMB = 1
	}
	if l.MaxBackups < 0 {
		l.MaxBackups = 0
	}
	if l.MaxAgeDays < 0 {
		l.MaxAgeDays = 0
	}
}

// SlogLevel maps Level onto a slog.Level, defaulting to info.
func (l *LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
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
