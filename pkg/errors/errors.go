package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

// contextError adds a short description of what was being done when `err`
// occurred.
type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` so that its message is prefixed with `context`.
// Wrapping a nil error returns nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error that was wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// the user, without any of the context that was added while it propagated.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError using a format template.
func NewFriendlyError(template string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(template, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be shown to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// Friendly is implemented by errors that carry a message for the user.
type Friendly interface {
	FriendlyMessage() string
}

// GetFriendlyMessage returns the friendly message of the root cause of
// `err`, if it has one.
func GetFriendlyMessage(err error) (string, bool) {
	if friendly, ok := RootCause(err).(Friendly); ok {
		return friendly.FriendlyMessage(), true
	}
	return "", false
}
