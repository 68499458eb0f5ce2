// Package logging holds the zap logger shared by the tunables runtime.
// It is a no-op logger until SetLogger is called.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Logger returns the runtime's logger instance.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger configures the runtime's logger. A nil logger restores the
// no-op logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Named returns a child logger for a component.
func Named(component string) *zap.Logger {
	return Logger().Named(component)
}

// NewCLILogger builds the logger installed by the command line: a
// development logger when verbose, warnings only otherwise.
func NewCLILogger(verbose bool, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
