// Package logging configures the process-wide zerolog logger and adapts it to
// the small component logger interface the rest of the board uses.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Default: info.
	Level string
	// Format is json or console. Default: console.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger is the logging shape handed to every component.
// The component argument ends up as a structured field.
type Logger interface {
	Debugf(component string, format string, args ...interface{})
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init replaces the global logger. It is safe to call more than once.
func Init(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if cfg.Format == "" || strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05", NoColor: true}
	}

	l := zerolog.New(out).With().Timestamp().Logger()

	mu.Lock()
	base = l
	mu.Unlock()
	return l
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Base returns the current global zerolog logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// ZeroLogger implements Logger on top of a zerolog.Logger.
type ZeroLogger struct {
	log zerolog.Logger
}

// New wraps l. Use New(Base()) after Init.
//
//nolint:gocritic // hugeParam
func New(l zerolog.Logger) ZeroLogger { return ZeroLogger{log: l} }

func (l ZeroLogger) Debugf(component string, format string, args ...interface{}) {
	l.log.Debug().Str("component", component).Msg(fmt.Sprintf(format, args...))
}

func (l ZeroLogger) Infof(component string, format string, args ...interface{}) {
	l.log.Info().Str("component", component).Msg(fmt.Sprintf(format, args...))
}

func (l ZeroLogger) Errorf(component string, format string, args ...interface{}) {
	l.log.Error().Str("component", component).Msg(fmt.Sprintf(format, args...))
}

type NoopLogger struct{}

func (NoopLogger) Debugf(component, format string, args ...interface{}) {}
func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

// OrNoop returns l, or a NoopLogger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}
