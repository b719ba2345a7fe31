package blog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to Logger
type ZerologLogger struct {
	log zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger wraps logger, tagging every entry with component.
func NewZerologLogger(logger zerolog.Logger, component string) *ZerologLogger {
	if component != "" {
		logger = logger.With().Str("component", component).Logger()
	}
	return &ZerologLogger{log: logger}
}

// NewConsoleLogger builds a human readable zerolog logger writing to w,
// stdout when w is nil.
func NewConsoleLogger(w io.Writer, level string) *ZerologLogger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger()
	return &ZerologLogger{log: l}
}

// Named returns a child logger for component.
func (z *ZerologLogger) Named(component string) *ZerologLogger {
	return NewZerologLogger(z.log, component)
}

func (z *ZerologLogger) Debug(format string, args ...any) {
	z.log.Debug().Msgf(format, args...)
}

func (z *ZerologLogger) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

func (z *ZerologLogger) Warn(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

func (z *ZerologLogger) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}

// Zerolog exposes the wrapped logger for structured writers
func (z *ZerologLogger) Zerolog() zerolog.Logger {
	return z.log
}
