package remote

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/metrics"
)

// chunkSize is the number of bytes moved between progress reports.
const chunkSize = 8192

// fs is the local filesystem. It's replaced by an in-memory filesystem in
// the tests.
var fs = afero.NewOsFs()

// SafeUpload uploads d.LocalPath to d.CommonPath. The file is written under
// a temporary name and only renamed over the destination once its size
// matches d.Item.Size.
func (s *Session) SafeUpload(d TransferDescriptor) TransferStatus {
	log := s.log.WithField("path", d.CommonPath)
	if d.Item.Size >= 0 && s.Exists(d.CommonPath) && s.SizeOf(d.CommonPath) == d.Item.Size {
		log.Debug("File seems to be already synced (skipping)")
		return s.finish(d, Success)
	}

	temp := tempName(d.CommonPath, s.cfg.TempPrefix)
	if err := s.upload(d, temp); err != nil {
		log.WithError(err).Warn("Upload failed")
		s.Remove(temp)
		return s.finish(d, Failure)
	}

	if size := s.SizeOf(temp); d.Item.Size < 0 || size != d.Item.Size {
		log.WithError(errors.TransferSizeMismatch{
			Path: temp, Expected: d.Item.Size, Actual: size,
		}).Warn("Upload failed verification")
		s.Remove(temp)
		return s.finish(d, Failure)
	}

	if s.Exists(d.CommonPath) {
		s.Remove(d.CommonPath)
	}
	if err := s.Rename(temp, d.CommonPath); err != nil {
		log.WithError(err).Warn("Failed to move upload into place")
		s.Remove(temp)
		return s.finish(d, Failure)
	}
	return s.finish(d, Success)
}

func (s *Session) upload(d TransferDescriptor, temp string) error {
	f, err := fs.Open(d.LocalPath)
	if err != nil {
		return errors.WithContext(err, "open local file")
	}
	defer f.Close()

	s.lock.Lock()
	defer s.lock.Unlock()

	w, err := s.transport.OpenWrite(absPath(s.root, temp))
	if err != nil {
		return errors.WithContext(err, "open remote file")
	}

	err = s.copyChunks(d, w, f, s.cfg.UploadLimitKBps)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = errors.WithContext(closeErr, "close remote file")
	}
	return err
}

// SafeDownload downloads d.CommonPath to d.LocalPath. The file is written
// to a temporary local file, and once its size matches d.Item.Size any
// existing file is moved to the trash and replaced.
func (s *Session) SafeDownload(d TransferDescriptor) TransferStatus {
	log := s.log.WithField("path", d.CommonPath)
	if fi, err := fs.Stat(d.LocalPath); err == nil && !fi.IsDir() &&
		d.Item.Size >= 0 && fi.Size() == d.Item.Size {
		log.Debug("File seems to be already synced (skipping)")
		return s.finish(d, Success)
	}

	dir := filepath.Dir(d.LocalPath)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		log.WithError(err).Warn("Failed to create local folder")
		return s.finish(d, Failure)
	}

	temp := filepath.Join(dir, s.cfg.TempPrefix+uuid.New().String())
	if err := s.download(d, temp); err != nil {
		log.WithError(err).Warn("Download failed")
		s.removeLocal(log, temp)
		return s.finish(d, Failure)
	}

	fi, err := fs.Stat(temp)
	if err != nil || d.Item.Size < 0 || fi.Size() != d.Item.Size {
		var actual int64 = -1
		if err == nil {
			actual = fi.Size()
		}
		log.WithError(errors.TransferSizeMismatch{
			Path: temp, Expected: d.Item.Size, Actual: actual,
		}).Warn("Download failed verification")
		s.removeLocal(log, temp)
		return s.finish(d, Failure)
	}

	if err := s.commitDownload(temp, d.LocalPath); err != nil {
		log.WithError(err).Warn("Failed to move download into place")
		s.removeLocal(log, temp)
		return s.finish(d, Failure)
	}
	return s.finish(d, Success)
}

func (s *Session) download(d TransferDescriptor, temp string) error {
	f, err := fs.Create(temp)
	if err != nil {
		return errors.WithContext(err, "create temp file")
	}
	defer f.Close()

	s.lock.Lock()
	defer s.lock.Unlock()

	r, err := s.transport.OpenRead(absPath(s.root, d.CommonPath))
	if err != nil {
		return errors.WithContext(err, "open remote file")
	}
	defer r.Close()

	return s.copyChunks(d, f, r, s.cfg.DownloadLimitKBps)
}

// commitDownload replaces dst with temp. Local change detection is paused
// for the whole swap so the replacement isn't picked up as a local edit.
func (s *Session) commitDownload(temp, dst string) error {
	if s.watcher != nil {
		s.watcher.Pause()
		defer s.watcher.Resume()
	}

	if _, err := fs.Stat(dst); err == nil {
		if s.recycler == nil {
			return errors.New("no trash available for the existing file")
		}
		if err := s.recycler.Trash(dst); err != nil {
			return errors.WithContext(err, "trash existing file")
		}
	} else if !os.IsNotExist(err) {
		return errors.WithContext(err, "stat")
	}

	if err := fs.Rename(temp, dst); err != nil {
		return errors.WithContext(err, "rename")
	}
	return nil
}

func (s *Session) removeLocal(log *logrus.Entry, p string) {
	if err := fs.Remove(p); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("temp", p).Warn("Failed to clean up temporary file")
	}
}

// copyChunks must be called with the lock held.
func (s *Session) copyChunks(d TransferDescriptor, dst io.Writer, src io.Reader, limitKBps int) error {
	buf := make([]byte, chunkSize)
	startedOn := s.clock.Now()
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return errors.WithContext(err, "write")
			}
			total += int64(n)
			metrics.RecordTransferBytes(d.Direction.String(), n)

			s.events.progress(TransferProgress{
				Transferred:      n,
				TotalTransferred: total,
				Item:             d,
				StartedOn:        startedOn,
				SampledOn:        s.clock.Now(),
			})

			if delay := Delay(limitKBps, total, s.clock.Since(startedOn)); delay > 0 {
				s.clock.Sleep(delay)
			}
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WithContext(err, "read")
		}
	}
}

func (s *Session) finish(d TransferDescriptor, status TransferStatus) TransferStatus {
	metrics.RecordTransfer(d.Direction.String(), status.String())
	return status
}
