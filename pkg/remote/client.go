package remote

import (
	"context"
	"iter"
	"time"
)

// Client is the set of operations the sync queue uses to talk to a server.
// Session is the only implementation outside of tests.
//go:generate mockery -name Client
type Client interface {
	Connect(ctx context.Context, isReconnect bool) error
	Reconnect(ctx context.Context) error
	Disconnect() error

	Exists(p string) bool
	SizeOf(p string) int64
	GetLastModified(p string) time.Time

	List(p string, skipIgnored bool) []ClientItem
	ListRecursive(p string, skipIgnored bool) iter.Seq[ClientItem]
	ListingFailed() bool

	MakeFolder(p string) error
	Remove(p string)
	RemoveFolder(p string, skipIgnored bool) error
	Rename(oldPath, newPath string) error

	SafeUpload(d TransferDescriptor) TransferStatus
	SafeDownload(d TransferDescriptor) TransferStatus
}

var _ Client = &Session{}
