// Package trash implements recoverable deletion of local files. Trashed
// files are moved into a per-user directory instead of being unlinked, so a
// file replaced by a download can still be restored by hand.
package trash

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/syncbox/pkg/errors"
)

// DefaultDir is where trashed files are kept unless configured otherwise.
const DefaultDir = "~/.syncbox/trash"

// Bin moves files into a trash directory.
type Bin struct {
	fs  afero.Fs
	dir string
}

// Entry is a file that was moved into the trash.
type Entry struct {
	// Name is the original base name of the file.
	Name string

	// Path is the location of the file inside the trash.
	Path string

	Size int64
}

// New returns a Bin that keeps trashed files in dir.
func New(fs afero.Fs, dir string) *Bin {
	return &Bin{fs: fs, dir: dir}
}

// NewDefault returns a Bin backed by the OS filesystem and DefaultDir.
func NewDefault() (*Bin, error) {
	dir, err := homedir.Expand(DefaultDir)
	if err != nil {
		return nil, errors.WithContext(err, "expand trash dir")
	}
	return New(afero.NewOsFs(), dir), nil
}

// Trash moves the file at path into the trash.
func (bin *Bin) Trash(path string) error {
	if err := bin.fs.MkdirAll(bin.dir, 0755); err != nil {
		return errors.WithContext(err, "create trash dir")
	}

	dst := filepath.Join(bin.dir, fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(path)))
	if err := bin.fs.Rename(path, dst); err == nil {
		log.WithField("path", path).WithField("trash", dst).Debug("Moved file to trash")
		return nil
	} else if !isCrossDevice(err) {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: path}
		}
		return errors.WithContext(err, "rename")
	}

	// The trash lives on another device, so copy then remove.
	if err := bin.copyFile(path, dst); err != nil {
		return errors.WithContext(err, "copy to trash")
	}
	if err := bin.fs.Remove(path); err != nil {
		return errors.WithContext(err, "remove original")
	}
	return nil
}

// List returns the files currently in the trash, sorted by original name.
func (bin *Bin) List() ([]Entry, error) {
	infos, err := afero.ReadDir(bin.fs, bin.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithContext(err, "read trash dir")
	}

	var entries []Entry
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		name := fi.Name()
		if idx := strings.Index(name, "_"); idx != -1 {
			name = name[idx+1:]
		}
		entries = append(entries, Entry{
			Name: name,
			Path: filepath.Join(bin.dir, fi.Name()),
			Size: fi.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Restore moves a trashed entry back to dst. It refuses to overwrite an
// existing file.
func (bin *Bin) Restore(entry Entry, dst string) error {
	if _, err := bin.fs.Stat(dst); err == nil {
		return errors.NewFriendlyError("%q already exists", dst)
	}
	if err := bin.fs.Rename(entry.Path, dst); err != nil {
		return errors.WithContext(err, "rename")
	}
	return nil
}

func (bin *Bin) copyFile(src, dst string) error {
	in, err := bin.fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open")
	}
	defer in.Close()

	out, err := bin.fs.Create(dst)
	if err != nil {
		return errors.WithContext(err, "create")
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WithContext(err, "copy")
	}
	return out.Close()
}

func isCrossDevice(err error) bool {
	return err != nil && strings.Contains(err.Error(), "cross-device link")
}
