package remote

import (
	"path"
	"time"
)

// ItemType is the kind of a remote directory entry.
type ItemType int

const (
	// File is a regular file.
	File ItemType = iota

	// Folder is a directory.
	Folder

	// Other covers symlinks and special files. Items of this type are never
	// returned from listings.
	Other
)

func (t ItemType) String() string {
	switch t {
	case File:
		return "file"
	case Folder:
		return "folder"
	default:
		return "other"
	}
}

// ClientItem is a directory entry, normalized so that it looks the same
// regardless of which protocol listed it.
type ClientItem struct {
	Name string

	// FullPath is relative to the remote root, without a leading slash.
	FullPath string

	Type ItemType
	Size int64

	LastModified time.Time
}

// Direction is the direction of a transfer.
type Direction int

const (
	// Upload copies a local file to the server.
	Upload Direction = iota

	// Download copies a remote file to the local machine.
	Download
)

func (d Direction) String() string {
	if d == Download {
		return "download"
	}
	return "upload"
}

// TransferDescriptor describes a single transfer requested by the sync
// queue. The session never modifies it.
type TransferDescriptor struct {
	// Item is the item being transferred. Its Size is the size the
	// destination must have once the transfer is complete.
	Item ClientItem

	// LocalPath is the absolute path of the file on the local machine.
	LocalPath string

	// CommonPath is the path of the file relative to the remote root.
	CommonPath string

	Direction Direction

	// SkipNotification is passed through to progress observers.
	SkipNotification bool
}

// TransferStatus is the outcome of a safe transfer.
type TransferStatus int

const (
	// Success means the destination now holds the complete file.
	Success TransferStatus = iota

	// Failure means the destination was left untouched.
	Failure
)

func (s TransferStatus) String() string {
	if s == Success {
		return "success"
	}
	return "failure"
}

// tempName returns the name of the staging file used when uploading to
// commonPath.
func tempName(commonPath, prefix string) string {
	dir, name := path.Split(commonPath)
	return dir + prefix + name
}
