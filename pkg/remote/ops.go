package remote

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/metrics"
)

// Exists returns whether a file or folder exists at p. Errors are logged
// and reported as false.
func (s *Session) Exists(p string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	abs := absPath(s.root, p)
	exists, err := s.transport.FileExists(abs)
	if err == nil && !exists {
		exists, err = s.transport.DirExists(abs)
	}
	if err != nil {
		s.log.WithError(err).WithField("path", p).Debug("Failed to check if path exists")
		return false
	}
	return exists
}

// SizeOf returns the size of the file at p, or -1 if it can't be
// determined.
func (s *Session) SizeOf(p string) int64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	size, err := s.transport.Size(absPath(s.root, p))
	if err != nil || size < 0 {
		s.log.WithError(err).WithField("path", p).Debug("Failed to get size")
		return -1
	}
	return size
}

// GetLastModified returns the modification time of the file at p. The zero
// time is returned when it's unknown, which is always the case for folders
// on servers that only report file times.
func (s *Session) GetLastModified(p string) time.Time {
	if strings.TrimSpace(p) == "" {
		return time.Time{}
	}
	p = strings.TrimPrefix(p, "/")

	s.lock.Lock()
	defer s.lock.Unlock()

	modTime, err := s.transport.ModTime(absPath(s.root, p))
	if err != nil {
		s.log.WithError(err).WithField("path", p).Debug(
			"Failed to get modification time, assuming it's a folder")
		return time.Time{}
	}
	return modTime
}

// ListingFailed returns whether the most recent listing failed.
func (s *Session) ListingFailed() bool {
	return s.listingFailed.Load()
}

// List returns the files and folders directly inside p. If the listing
// fails, it returns nil and ListingFailed reports true until the next call.
func (s *Session) List(p string, skipIgnored bool) []ClientItem {
	s.listingFailed.Store(false)
	s.stopKeepAlive()
	defer s.startKeepAlive()

	s.lock.Lock()
	root := s.root
	dir := absPath(root, p)
	entries, err := s.transport.List(s.ctx, dir)
	s.lock.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("path", p).Warn("Failed to list folder")
		s.listingFailed.Store(true)
		metrics.RecordListingFailure()
		return nil
	}

	items := make([]ClientItem, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." || e.Type == Other {
			continue
		}

		full := entryPath(dir, e)
		if !below(dir, full) || !below(root, full) {
			s.log.WithField("path", full).WithField("folder", dir).Warn(
				"Skipping entry outside of the listed folder")
			continue
		}

		item := ClientItem{
			Name:         e.Name,
			FullPath:     CommonPath(root, full),
			Type:         e.Type,
			Size:         e.Size,
			LastModified: e.ModTime,
		}
		if skipIgnored && s.ignore != nil && s.ignore(item) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// ListRecursive walks the tree under p depth first. At each level it yields
// the files, and then each folder followed by that folder's contents. The
// walk stops without an error as soon as a listing fails, so callers should
// check ListingFailed once it's done.
func (s *Session) ListRecursive(p string, skipIgnored bool) iter.Seq[ClientItem] {
	return func(yield func(ClientItem) bool) {
		s.walk(p, skipIgnored, yield)
	}
}

func (s *Session) walk(p string, skipIgnored bool, yield func(ClientItem) bool) bool {
	items := s.List(p, skipIgnored)
	if s.ListingFailed() {
		return false
	}

	var folders []ClientItem
	for _, item := range items {
		if item.Type == Folder {
			folders = append(folders, item)
			continue
		}
		if !yield(item) {
			return false
		}
	}

	for _, folder := range folders {
		if !yield(folder) {
			return false
		}
		if !s.walk(folder.FullPath, skipIgnored, yield) {
			return false
		}
	}
	return true
}

// MakeFolder creates the folder at p. It succeeds if the folder already
// exists.
func (s *Session) MakeFolder(p string) error {
	s.lock.Lock()
	err := s.transport.MakeDir(absPath(s.root, p))
	s.lock.Unlock()

	if err != nil && !s.Exists(p) {
		return errors.WithContext(err, "make folder")
	}
	return nil
}

// Remove deletes the file at p. Failures are only logged.
func (s *Session) Remove(p string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.transport.Delete(absPath(s.root, p)); err != nil {
		s.log.WithError(err).WithField("path", p).Debug("Failed to remove file")
	}
}

// RemoveFolder deletes the folder at p along with everything inside it.
func (s *Session) RemoveFolder(p string, skipIgnored bool) error {
	if !s.Exists(p) {
		return nil
	}

	s.log.WithField("path", p).Debug("About to delete folder")
	items := slices.Collect(s.ListRecursive(p, skipIgnored))
	if s.ListingFailed() {
		return errors.New("failed to list folder contents")
	}

	// Every item is listed after its parent, so walking the list backwards
	// empties each folder before removing it.
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item.Type == File {
			s.Remove(item.FullPath)
			continue
		}
		if err := s.removeDir(item.FullPath); err != nil {
			return errors.WithContext(err, fmt.Sprintf("remove %s", item.FullPath))
		}
	}

	if err := s.removeDir(p); err != nil {
		return errors.WithContext(err, fmt.Sprintf("remove %s", p))
	}
	s.log.WithField("path", p).Info("Deleted folder")
	return nil
}

func (s *Session) removeDir(p string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.transport.RemoveDir(absPath(s.root, p))
}

// Rename moves oldPath to newPath.
func (s *Session) Rename(oldPath, newPath string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := s.transport.Rename(absPath(s.root, oldPath), absPath(s.root, newPath))
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("rename %s", oldPath))
	}
	return nil
}
