package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/config"
)

// New builds the process logger. Unknown levels fall back to info.
func New(cfg config.LoggingConfig) zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

func NewWithWriter(out io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	var log zerolog.Logger

	if cfg.Pretty {
		output := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
		log = zerolog.New(output).With().Timestamp().Logger()
	} else {
		log = zerolog.New(out).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return log.Level(level)
}
