package app

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/jgivc/pluginmaster/internal/config"
)

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lo := &slog.HandlerOptions{}
	var level charmlog.Level

	switch cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level, level = slog.LevelInfo, charmlog.InfoLevel
	case config.LogLevelWarn:
		lo.Level, level = slog.LevelWarn, charmlog.WarnLevel
	case config.LogLevelError:
		lo.Level, level = slog.LevelError, charmlog.ErrorLevel
	case config.LogLevelDebug:
		lo.Level, level = slog.LevelDebug, charmlog.DebugLevel
	default:
		panic("unknown log level")
	}

	if cfg.LogFormat == config.LogFormatText {
		return slog.New(slog.NewTextHandler(w, lo))
	}

	return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "pluginmaster",
	}))
}
