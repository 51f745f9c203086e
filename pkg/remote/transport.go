package remote

import (
	"context"
	"io"
	"time"
)

// Entry is a raw directory entry as reported by a Transport.
type Entry struct {
	Name string

	// Path is the path the server reported for the entry, if it reported
	// more than a bare name. It may be absolute, or relative to the listed
	// directory (e.g. "./name"). When empty, the entry lives directly in the
	// listed directory.
	Path string

	Type    ItemType
	Size    int64
	ModTime time.Time
}

// ServerInfo is a key/value description of the server, logged after
// connecting when debug logging is enabled.
type ServerInfo map[string]string

// Transport supplies the raw primitives of one protocol. Implementations
// aren't safe for concurrent use. The Session serializes every call.
//
// All paths passed to a Transport are absolute.
//go:generate mockery -name Transport
type Transport interface {
	// Connect dials the server and logs in. The transport calls trust from
	// inside its handshake for every server identity it's presented.
	Connect(ctx context.Context, trust TrustFunc) error
	// Close releases the connection. It's called even when Connected reports
	// false, for example after the server hung up, so it has to be safe to
	// call more than once.
	Close() error
	Connected() bool

	// Getwd returns the transport's current directory.
	Getwd() (string, error)
	ChangeDir(dir string) error

	List(ctx context.Context, dir string) ([]Entry, error)
	FileExists(p string) (bool, error)
	DirExists(p string) (bool, error)
	Size(p string) (int64, error)
	ModTime(p string) (time.Time, error)

	OpenRead(p string) (io.ReadCloser, error)

	// OpenWrite creates or truncates p. The upload is complete once the
	// returned writer has been closed without error.
	OpenWrite(p string) (io.WriteCloser, error)

	Rename(from, to string) error
	Delete(p string) error
	MakeDir(p string) error
	RemoveDir(p string) error

	KeepAlive() error
	ServerInfo() ServerInfo
}
