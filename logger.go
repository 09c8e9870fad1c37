package respcache

import (
	"log/slog"
	"sync/atomic"
)

var packageLogger atomic.Pointer[slog.Logger]

// SetLogger replaces the package logger used by the middleware.
// Passing nil restores the default slog logger.
func SetLogger(logger *slog.Logger) {
	packageLogger.Store(logger)
}

// GetLogger returns the logger configured with SetLogger, falling back
// to the default slog logger.
func GetLogger() *slog.Logger {
	if l := packageLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// log returns the logger for the Middleware.
// If a logger is configured on the Middleware, it returns that logger.
// Otherwise, it falls back to the package logger.
func (m *Middleware) log() *slog.Logger {
	if m != nil && m.logger != nil {
		return m.logger
	}
	return GetLogger()
}
