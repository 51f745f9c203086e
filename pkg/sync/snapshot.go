package sync

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// FileAttributes contains the metadata used to compare whether two files
// are equal.
type FileAttributes struct {
	Size    int64
	ModTime time.Time
}

// A LocalFile is a file or folder inside the local sync folder.
type LocalFile struct {
	// Path is relative to the sync root, and slash separated so that it can
	// be compared with remote paths.
	Path string

	// ContentsPath is the path that can be opened by this process.
	ContentsPath string

	IsDir bool

	FileAttributes
}

// LocalSnapshot is a collection of local files, keyed by Path.
type LocalSnapshot map[string]LocalFile

// RemoteSnapshot is a collection of remote items, keyed by FullPath.
type RemoteSnapshot map[string]remote.ClientItem

// SnapshotLocal returns the files and folders under root that aren't
// ignored. Symlinks and other special files are skipped.
func SnapshotLocal(root string, ignore Ignore) (LocalSnapshot, error) {
	if _, err := fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	files := LocalSnapshot{}
	err := afero.Walk(fs, root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if p == root {
			return nil
		}

		relativePath, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(relativePath, "..") {
			// This shouldn't happen because `p` is always a child of `root`.
			return errors.WithContext(err, "normalized path")
		}
		commonPath := filepath.ToSlash(relativePath)

		if ignore.MatchesPath(commonPath) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !fi.IsDir() && !fi.Mode().IsRegular() {
			return nil
		}

		files[commonPath] = LocalFile{
			Path:         commonPath,
			ContentsPath: p,
			IsDir:        fi.IsDir(),
			FileAttributes: FileAttributes{
				Size:    fi.Size(),
				ModTime: fi.ModTime(),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// SnapshotRemote walks the whole remote root, skipping ignored items.
func SnapshotRemote(client remote.Client) (RemoteSnapshot, error) {
	items := RemoteSnapshot{}
	for item := range client.ListRecursive("", true) {
		items[item.FullPath] = item
	}

	if client.ListingFailed() {
		return nil, errors.New("remote listing failed")
	}
	return items, nil
}

// Plan is the work needed to bring one side of the sync up to date.
type Plan struct {
	// Folders are the paths of the folders to create, parents first.
	Folders []string

	Transfers []remote.TransferDescriptor
}

// Empty returns whether there's nothing to do.
func (p Plan) Empty() bool {
	return len(p.Folders) == 0 && len(p.Transfers) == 0
}

// DiffPush returns the work needed to copy the local files to the server.
func (local LocalSnapshot) DiffPush(rs RemoteSnapshot) Plan {
	var plan Plan
	for _, f := range local {
		curr, ok := rs[f.Path]
		if ok && (curr.Type == remote.Folder) != f.IsDir {
			log.WithField("path", f.Path).Warn(
				"File is a folder on one side and a file on the other. Skipping.")
			continue
		}

		switch {
		case f.IsDir:
			if !ok {
				plan.Folders = append(plan.Folders, f.Path)
			}
		case !ok || curr.Size != f.Size:
			plan.Transfers = append(plan.Transfers, remote.TransferDescriptor{
				Item: remote.ClientItem{
					Name:         path.Base(f.Path),
					FullPath:     f.Path,
					Type:         remote.File,
					Size:         f.Size,
					LastModified: f.ModTime,
				},
				LocalPath:  f.ContentsPath,
				CommonPath: f.Path,
				Direction:  remote.Upload,
			})
		}
	}
	plan.sort()
	return plan
}

// DiffPull returns the work needed to copy the remote items into
// localRoot.
func (rs RemoteSnapshot) DiffPull(local LocalSnapshot, localRoot string) Plan {
	var plan Plan
	for _, item := range rs {
		curr, ok := local[item.FullPath]
		if ok && curr.IsDir != (item.Type == remote.Folder) {
			log.WithField("path", item.FullPath).Warn(
				"File is a folder on one side and a file on the other. Skipping.")
			continue
		}

		switch {
		case item.Type == remote.Folder:
			if !ok {
				plan.Folders = append(plan.Folders, item.FullPath)
			}
		case !ok || curr.Size != item.Size:
			plan.Transfers = append(plan.Transfers, remote.TransferDescriptor{
				Item:       item,
				LocalPath:  localPath(localRoot, item.FullPath),
				CommonPath: item.FullPath,
				Direction:  remote.Download,
			})
		}
	}
	plan.sort()
	return plan
}

func localPath(root, commonPath string) string {
	return filepath.Join(root, filepath.FromSlash(commonPath))
}

func (p *Plan) sort() {
	// A parent is a prefix of its children, so it sorts first.
	sort.Strings(p.Folders)
	sort.Slice(p.Transfers, func(i, j int) bool {
		return p.Transfers[i].CommonPath < p.Transfers[j].CommonPath
	})
}
