// Package logger wraps zerolog with the service defaults used across the gateway:
// a named JSON logger, optional console output and key redaction.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RedactedMarker replaces every redacted value in a serialized record.
const RedactedMarker = "[Redacted]"

// DefaultRedactions lists the key paths redacted unless the config disables them.
var DefaultRedactions = []string{
	"access_token",
	"data.access_token",
	"data.accessToken",
	"DATABASE_URL",
	"accessToken",
	"authorization",
	"email",
	"event.headers.authorization",
	"host",
	"jwt",
	"JWT",
	"password",
	"params",
	"secret",
}

var ErrInvalidAttributes = errors.New("attributes must be key value pairs")

type Config struct {
	Name   string
	Level  string
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Redact is appended to DefaultRedactions.
	Redact []string
	// NoDefaultRedactions drops DefaultRedactions.
	NoDefaultRedactions bool
}

func DefaultConfig() Config {
	return Config{
		Name:  "gateway",
		Level: "info",
	}
}

type Logger struct {
	zerolog.Logger
}

// New creates a logger from the given config.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	paths := cfg.Redact
	if !cfg.NoDefaultRedactions {
		paths = append(append([]string{}, DefaultRedactions...), cfg.Redact...)
	}
	if len(paths) > 0 {
		out = NewRedactWriter(out, paths)
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Name != "" {
		zl = zl.With().Str("service", cfg.Name).Logger()
	}

	return &Logger{Logger: zl}, nil
}

// ChildLoggerWithAttributes returns a logger carrying the given key value pairs.
func (l *Logger) ChildLoggerWithAttributes(keyValues ...string) (*Logger, error) {
	if len(keyValues)%2 != 0 {
		return nil, ErrInvalidAttributes
	}

	zc := l.With()
	for i := 0; i < len(keyValues); i += 2 {
		zc = zc.Str(keyValues[i], keyValues[i+1])
	}

	return &Logger{Logger: zc.Logger()}, nil
}

// ComponentLogger returns a child logger tagged with a component name.
func (l *Logger) ComponentLogger(component string) *Logger {
	return &Logger{Logger: l.With().Str("component", component).Logger()}
}

// NewNop returns a logger that discards everything, mostly for tests.
func NewNop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}
