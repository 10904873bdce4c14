// Package planner is the Query Planner (spec §4.4): it compiles a
// requested-field tree plus its where/orderBy/pagination arguments into one
// SQL statement, executes it over a Connection, and shapes the flat rows
// back into nested response objects.
package planner

import (
	"fmt"

	"github.com/samsarahq/go/oops"
)

// UserError is returned for any input the planner rejects as invalid
// rather than mis-plans: a missing required argument, a malformed scalar
// literal, an invalid cursor, an unknown where/orderBy property, some/
// every/none on a non-list-relation field, or a sort path that doesn't
// terminate on a scalar/enum. It mirrors graphql.ClientError in the
// teacher package: its message is safe to return to the client as-is.
type UserError struct {
	message string
}

func (e *UserError) Error() string { return e.message }

// SanitizedError lets a transport layer distinguish user errors from
// internal ones without type-asserting on *UserError directly.
func (e *UserError) SanitizedError() string { return e.message }

// NewUserError builds a UserError.
func NewUserError(format string, args ...interface{}) error {
	return &UserError{message: fmt.Sprintf(format, args...)}
}

// InvalidCursorValue is the specific, stably-named user error for a
// cursor that fails to decode (spec §6.3).
func InvalidCursorValue(reason string) error {
	return NewUserError("InvalidCursorValue: %s", reason)
}

// SchemaError indicates a Model invariant the external validator should
// have caught; if the planner observes one mid-walk it is a programmer
// error (spec §7) and is wrapped for diagnostics rather than retried.
type SchemaError struct {
	err error
}

func (e *SchemaError) Error() string { return e.err.Error() }
func (e *SchemaError) Unwrap() error { return e.err }

func newSchemaError(format string, args ...interface{}) error {
	return &SchemaError{err: oops.Errorf(format, args...)}
}

// wrapIO wraps a transient I/O error (connection/execution failure) with
// call-site context; it is never sanitized for the client (spec §7:
// "Transient I/O ... surfaced as 5xx").
func wrapIO(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return oops.Wrapf(err, format, args...)
}
