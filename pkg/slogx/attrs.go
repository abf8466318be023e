package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the attribute key naming the component that logs.
	KeyLoggerName = "logger"
	// KeyPath is the attribute key for an exchange path.
	KeyPath = "path"
	// KeyMode is the attribute key for an ownership mode.
	KeyMode = "mode"
)

// Error returns an "error" attribute holding the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Stringer creates an attribute from the string form of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// Path creates a "path" attribute. The root path renders as "/".
func Path(p fmt.Stringer) slog.Attr {
	return PathKey(KeyPath, p)
}

// PathKey is Path with a caller chosen key, for operations with two paths.
func PathKey(key string, p fmt.Stringer) slog.Attr {
	s := p.String()
	if s == "" {
		s = "/"
	}
	return slog.String(key, s)
}

// Mode creates a "mode" attribute.
func Mode(m fmt.Stringer) slog.Attr {
	return Stringer(KeyMode, m)
}

// LoggerName creates the attribute naming a logger.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
