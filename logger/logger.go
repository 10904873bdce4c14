// Package logger is the structured logger every call site in this module
// writes through (internal/planner.Planner, cmd/queryplanner/main.go). It
// keeps the teacher's flat (msg, tags...) calling convention but backs it
// with leveled, structured output via logrus, and demotes a logged error
// to warn level when it is client-caused rather than a server fault.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger takes in a message and tag pairs.
type Logger interface {
	Debug(msg string, tags ...interface{})
	Info(msg string, tags ...interface{})
	Warn(msg string, tags ...interface{})
	Error(msg string, tags ...interface{})
}

// sanitized is satisfied by errors that carry a client-safe message
// distinct from their full diagnostic text (internal/planner.UserError).
// logger can't import internal/planner (Planner already holds a Logger),
// so the error taxonomy is detected structurally through this interface
// rather than by type-asserting on the concrete type.
type sanitized interface {
	SanitizedError() string
}

type logger struct{ entry *logrus.Logger }

// New creates a logger that writes structured JSON to stdout.
func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &logger{entry: l}
}

// asFields turns a flat (key, value, key, value, ...) tag list into
// logrus.Fields. It reports whether any value was a sanitized (user-caused)
// error, in which case Error demotes the line to a warn.
func asFields(tags []interface{}) (logrus.Fields, bool) {
	f := make(logrus.Fields, len(tags)/2)
	userCaused := false
	for i := 0; i+1 < len(tags); i += 2 {
		key, ok := tags[i].(string)
		if !ok {
			continue
		}
		val := tags[i+1]
		if se, ok := val.(sanitized); ok {
			val = se.SanitizedError()
			userCaused = true
		}
		f[key] = val
	}
	return f, userCaused
}

// Debug creates a debug log entry.
func (l *logger) Debug(msg string, tags ...interface{}) {
	f, _ := asFields(tags)
	l.entry.WithFields(f).Debug(msg)
}

// Info creates an info log entry.
func (l *logger) Info(msg string, tags ...interface{}) {
	f, _ := asFields(tags)
	l.entry.WithFields(f).Info(msg)
}

// Warn creates a warn log entry.
func (l *logger) Warn(msg string, tags ...interface{}) {
	f, _ := asFields(tags)
	l.entry.WithFields(f).Warn(msg)
}

// Error creates an error log entry, except when the logged error is
// user-caused (e.g. internal/planner.UserError), in which case it is
// demoted to a warn: it isn't a server fault worth paging on.
func (l *logger) Error(msg string, tags ...interface{}) {
	f, userCaused := asFields(tags)
	if userCaused {
		l.entry.WithFields(f).Warn(msg)
		return
	}
	l.entry.WithFields(f).Error(msg)
}
