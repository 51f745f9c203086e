package sync

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

// Result summarizes a sync pass.
type Result struct {
	Folders     int
	Transferred int
	Failed      int
}

// Syncer runs sync passes between a local folder and a remote client. The
// fields must be set before the first pass, but InProgress may be called at
// any time.
type Syncer struct {
	Client remote.Client

	// Root is the local sync folder.
	Root   string
	Ignore Ignore
	Log    *logrus.Logger

	running atomic.Bool
}

// InProgress returns whether a sync pass is running.
func (s *Syncer) InProgress() bool {
	return s.running.Load()
}

// Push copies new and changed local files to the server.
func (s *Syncer) Push() (Result, error) {
	return s.run(remote.Upload)
}

// Pull copies new and changed remote files into the local folder.
func (s *Syncer) Pull() (Result, error) {
	return s.run(remote.Download)
}

func (s *Syncer) run(direction remote.Direction) (Result, error) {
	s.running.Store(true)
	defer s.running.Store(false)

	local, err := SnapshotLocal(s.Root, s.Ignore)
	if err != nil {
		return Result{}, errors.WithContext(err, "get local files")
	}

	rs, err := SnapshotRemote(s.Client)
	if err != nil {
		return Result{}, errors.WithContext(err, "get remote files")
	}

	var plan Plan
	if direction == remote.Upload {
		plan = local.DiffPush(rs)
	} else {
		plan = rs.DiffPull(local, s.Root)
	}

	if plan.Empty() {
		s.Log.WithField("direction", direction).Debug("Already synced")
		return Result{}, nil
	}

	var res Result
	for _, folder := range plan.Folders {
		if err := s.makeFolder(direction, folder); err != nil {
			s.Log.WithError(err).WithField("path", folder).Warn("Failed to create folder")
			res.Failed++
			continue
		}
		res.Folders++
	}

	for _, d := range plan.Transfers {
		var status remote.TransferStatus
		if direction == remote.Upload {
			status = s.Client.SafeUpload(d)
		} else {
			status = s.Client.SafeDownload(d)
		}

		if status == remote.Success {
			res.Transferred++
		} else {
			res.Failed++
		}
	}

	s.Log.WithField("direction", direction).Infof(
		"Copied %d files, created %d folders, %d failed.",
		res.Transferred, res.Folders, res.Failed)
	return res, nil
}

func (s *Syncer) makeFolder(direction remote.Direction, p string) error {
	if direction == remote.Upload {
		return s.Client.MakeFolder(p)
	}
	return fs.MkdirAll(localPath(s.Root, p), 0755)
}
