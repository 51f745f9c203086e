package errors

import (
	"fmt"
)

var (
	// ErrCertBootstrap is returned by a TLS transport that rejected a server
	// certificate in order to collect it. The connection should be retried
	// exactly once.
	ErrCertBootstrap = New("server certificate collected, reconnect required")

	// ErrNotConnected is returned when an operation needs an open connection.
	ErrNotConnected = New("not connected")
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ConnectionError represents a failure to set up the transport to a server.
type ConnectionError struct {
	Host string
	Err  error
}

func (err ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %s", err.Host, err.Err)
}

func (err ConnectionError) Unwrap() error {
	return err.Err
}

// FriendlyMessage implements the Friendly interface.
func (err ConnectionError) FriendlyMessage() string {
	return fmt.Sprintf("Failed to connect to %s.\n\n"+
		"Please check the host, port and credentials in your account "+
		"config.\nThe underlying error was: %s", err.Host, err.Err)
}

// TrustRejected is returned when the server's certificate or host key was
// declined.
type TrustRejected struct {
	Fingerprint string
}

func (err TrustRejected) Error() string {
	return fmt.Sprintf("server identity %s was not trusted", err.Fingerprint)
}

// TransferSizeMismatch is returned when a staged transfer doesn't have the
// expected size after it finished.
type TransferSizeMismatch struct {
	Path     string
	Expected int64
	Actual   int64
}

func (err TransferSizeMismatch) Error() string {
	return fmt.Sprintf("size of %q is %d bytes, expected %d",
		err.Path, err.Actual, err.Expected)
}

// PermissionDenied is returned when the server refuses access to a path.
type PermissionDenied struct {
	Path string
}

func (err PermissionDenied) Error() string {
	return fmt.Sprintf("permission denied: %q", err.Path)
}

// Timeout is returned when a remote operation timed out.
type Timeout struct {
	Op string
}

func (err Timeout) Error() string {
	return fmt.Sprintf("%s timed out", err.Op)
}

// Timeout implements the net.Error style check used by retry loops.
func (err Timeout) Timeout() bool {
	return true
}
