// Package notify delivers engine events to the operator over one or
// more channels. Delivery never blocks trading code paths.
package notify

import (
	"github.com/rs/zerolog"
)

// Level classifies an event for channel filtering.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Sink receives events. Implementations must be safe for concurrent use
// and must not block the caller on slow delivery.
type Sink interface {
	Notify(level Level, message string)
}

// Multi fans events out to several sinks, dropping those below the
// configured minimum level.
type Multi struct {
	sinks []Sink
	min   Level
}

// NewMulti builds a fan-out sink. level is the string from config:
// "all", "warnings" or "errors".
func NewMulti(level string, sinks ...Sink) *Multi {
	min := LevelInfo
	switch level {
	case "warnings":
		min = LevelWarning
	case "errors":
		min = LevelError
	}
	return &Multi{sinks: sinks, min: min}
}

func (m *Multi) Notify(level Level, message string) {
	if level < m.min {
		return
	}
	for _, s := range m.sinks {
		s.Notify(level, message)
	}
}

// LogSink writes events to the structured log. It is always present so
// the engine has an audit trail even with external channels disabled.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(level Level, message string) {
	switch level {
	case LevelError:
		s.logger.Error().Msg(message)
	case LevelWarning:
		s.logger.Warn().Msg(message)
	default:
		s.logger.Info().Msg(message)
	}
}

// Nop discards all events, for tests and disabled configurations.
type Nop struct{}

func (Nop) Notify(Level, string) {}
