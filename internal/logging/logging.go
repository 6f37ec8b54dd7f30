// Package logging builds the process logger. The logger is created once in
// main and handed to every component; nothing in dbviz logs through a global.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dbviz/dbviz/internal/config"
)

// New returns a zerolog.Logger writing to w at the configured level. The
// configured name is attached to every line under the "logger" key.
func New(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, config.LogFormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Name != "" {
		ctx = ctx.Str("logger", cfg.Name)
	}
	return ctx.Logger(), nil
}

// Component derives a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
