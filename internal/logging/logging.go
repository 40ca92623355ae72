// Package logging builds the zerolog loggers used throughout the host.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ErrInvalidFormat is returned for formats other than console and json.
var ErrInvalidFormat = errors.New("invalid log format")

// Config configures a logger.
type Config struct {
	// Level is debug, info, warn, error or disabled.
	Level string `toml:"level" yaml:"level"`

	// Format is console or json.
	Format string `toml:"format" yaml:"format"`

	// Output is stdout, stderr or a file path.
	Output string `toml:"output" yaml:"output"`
}

// DefaultConfig returns info-level console logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
		Output: "stderr",
	}
}

// ParseLevel converts a level name to a zerolog level. "warning" is
// accepted for warn; the empty string is info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(s))
}

// Validate checks the level and format.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log level %q: %w", c.Level, err)
	}
	switch c.Format {
	case "", FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
}

// New opens the configured output and returns a logger writing to it. The
// returned closer releases a file output; it is a no-op for stdout and
// stderr.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "stderr", "":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("opening log output: %w", err)
		}
		w, closer = f, f
	}

	return NewWithWriter(cfg, w), closer, nil
}

// NewWithWriter returns a logger writing to w. Invalid levels fall back to
// info.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == FormatConsole || cfg.Format == "" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !isTerminal(w)}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Component returns logger tagged with a component field.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
