package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger from the full config so the service
// name and environment ride along on every line. JSON output is the default;
// console format is for local development. Unknown levels fall back to info
// rather than failing startup.
func NewLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Logging.Format, "console") {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("service", "campus-life-events").
		Str("env", cfg.Environment).
		Logger()
	log.Logger = logger
	return logger
}
