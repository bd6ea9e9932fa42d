package config

import (
	"log/slog"
	"sort"
	"strings"
)

// Transport selects how the engine reaches the collaborator.
type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportNATS      Transport = "nats"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// enum maps case-insensitive spellings onto canonical values.
type enum[T ~string] struct {
	values map[string]T
}

func newEnum[T ~string](canonical []T, aliases map[string]T) enum[T] {
	values := make(map[string]T, len(canonical)+len(aliases))
	for _, v := range canonical {
		values[fold(string(v))] = v
	}
	for k, v := range aliases {
		values[fold(k)] = v
	}
	return enum[T]{values: values}
}

// lookup returns the canonical value and whether raw named one.
func (e enum[T]) lookup(raw string) (T, bool) {
	v, ok := e.values[fold(raw)]
	return v, ok
}

func (e enum[T]) valid() []string {
	seen := map[T]struct{}{}
	out := make([]string, 0, len(e.values))
	for _, v := range e.values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, string(v))
	}
	sort.Strings(out)
	return out
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var (
	transports = newEnum([]Transport{TransportWebSocket, TransportNATS}, map[string]Transport{
		"ws":  TransportWebSocket,
		"wss": TransportWebSocket,
	})
	logLevels = newEnum([]LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}, map[string]LogLevel{
		"warning": LogLevelWarn,
	})
	logFormats = newEnum([]LogFormat{LogFormatJSON, LogFormatText}, map[string]LogFormat{
		"console": LogFormatText,
	})
)

// NormalizeLogLevel returns the canonical level, or info for unknown input.
func NormalizeLogLevel(raw string) LogLevel {
	if l, ok := logLevels.lookup(raw); ok {
		return l
	}
	return LogLevelInfo
}

// NormalizeLogFormat returns the canonical format, or text for unknown input.
func NormalizeLogFormat(raw string) LogFormat {
	if f, ok := logFormats.lookup(raw); ok {
		return f
	}
	return LogFormatText
}

// SlogLevel maps the level onto log/slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
