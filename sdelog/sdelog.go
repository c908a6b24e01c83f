// Package sdelog is the logging seam used by the codec packages. It exists
// so that the handful of log lines the original codec emits at its open
// questions (see DESIGN.md) have somewhere to go without the codec packages
// importing a concrete logger directly.
package sdelog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetLogger replaces the package logger. Tests and embedding applications
// use this to redirect or silence codec diagnostics.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Debug logs a codec diagnostic at debug level.
func Debug(msg string, fields map[string]interface{}) {
	mu.Lock()
	l := logger
	mu.Unlock()

	ev := l.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Warn logs a codec diagnostic at warn level.
func Warn(msg string, fields map[string]interface{}) {
	mu.Lock()
	l := logger
	mu.Unlock()

	ev := l.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
