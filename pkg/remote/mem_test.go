package remote

import (
	"context"
	"io"
	"os"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/syncbox/pkg/errors"
)

// memTransport is a Transport backed by an in-memory filesystem.
type memTransport struct {
	mu sync.Mutex

	fs        afero.Fs
	home      string
	cwd       string
	connected bool
	connects  int

	// held is set from a successful connect until Close, even when the
	// connection drops in between. leaked counts connects that replaced a
	// connection which was never closed.
	held   bool
	leaked int

	// fingerprint is presented to the trust callback on every connect when
	// it's set.
	fingerprint string

	// bootstraps is the number of connects that fail with ErrCertBootstrap
	// before the handshake succeeds.
	bootstraps int

	connectErr error
	// onConnect runs at the start of every connect.
	onConnect func()

	listErr      error
	// extraEntries are appended to every listing as they are.
	extraEntries []Entry
	keepAliveErr error
	keepAlives   int

	// truncateWritesAt cuts uploads after this many bytes when positive.
	truncateWritesAt int64
}

func newMemTransport() *memTransport {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/home/user", 0755)
	return &memTransport{fs: fs, home: "/home/user"}
}

func (t *memTransport) Connect(ctx context.Context, trust TrustFunc) error {
	if t.onConnect != nil {
		t.onConnect()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.connects++
	if t.connectErr != nil {
		return t.connectErr
	}
	if t.bootstraps > 0 {
		t.bootstraps--
		return errors.ErrCertBootstrap
	}
	if t.fingerprint != "" && !trust(CertificateInfo{Fingerprint: t.fingerprint}) {
		return errors.TrustRejected{Fingerprint: t.fingerprint}
	}
	if t.held {
		t.leaked++
	}
	t.held = true
	t.connected = true
	t.cwd = t.home
	return nil
}

func (t *memTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held = false
	t.connected = false
	return nil
}

// drop loses the connection without the session closing it.
func (t *memTransport) drop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
}

func (t *memTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *memTransport) Getwd() (string, error) {
	return t.cwd, nil
}

func (t *memTransport) ChangeDir(dir string) error {
	if !path.IsAbs(dir) {
		dir = path.Join(t.cwd, dir)
	}
	fi, err := t.fs.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.New("not a directory")
	}
	t.cwd = dir
	return nil
}

func (t *memTransport) List(ctx context.Context, dir string) ([]Entry, error) {
	if t.listErr != nil {
		return nil, t.listErr
	}

	infos, err := afero.ReadDir(t.fs, dir)
	if err != nil {
		return nil, err
	}

	entries := []Entry{{Name: ".", Type: Folder}, {Name: "..", Type: Folder}}
	for _, fi := range infos {
		typ := File
		if fi.IsDir() {
			typ = Folder
		}
		entries = append(entries, Entry{
			Name:    fi.Name(),
			Type:    typ,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return append(entries, t.extraEntries...), nil
}

func (t *memTransport) FileExists(p string) (bool, error) {
	fi, err := t.fs.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil && !fi.IsDir(), err
}

func (t *memTransport) DirExists(p string) (bool, error) {
	return afero.DirExists(t.fs, p)
}

func (t *memTransport) Size(p string) (int64, error) {
	fi, err := t.fs.Stat(p)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (t *memTransport) ModTime(p string) (time.Time, error) {
	fi, err := t.fs.Stat(p)
	if err != nil {
		return time.Time{}, err
	}
	if fi.IsDir() {
		return time.Time{}, errors.New("not a file")
	}
	return fi.ModTime(), nil
}

func (t *memTransport) OpenRead(p string) (io.ReadCloser, error) {
	return t.fs.Open(p)
}

func (t *memTransport) OpenWrite(p string) (io.WriteCloser, error) {
	f, err := t.fs.Create(p)
	if err != nil {
		return nil, err
	}
	if t.truncateWritesAt > 0 {
		return &truncatingWriter{File: f, remaining: t.truncateWritesAt}, nil
	}
	return f, nil
}

func (t *memTransport) Rename(from, to string) error {
	return t.fs.Rename(from, to)
}

func (t *memTransport) Delete(p string) error {
	fi, err := t.fs.Stat(p)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New("is a directory")
	}
	return t.fs.Remove(p)
}

func (t *memTransport) MakeDir(p string) error {
	return t.fs.Mkdir(p, 0755)
}

func (t *memTransport) RemoveDir(p string) error {
	infos, err := afero.ReadDir(t.fs, p)
	if err != nil {
		return err
	}
	if len(infos) != 0 {
		return errors.New("directory not empty")
	}
	return t.fs.Remove(p)
}

func (t *memTransport) KeepAlive() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keepAlives++
	return t.keepAliveErr
}

func (t *memTransport) ServerInfo() ServerInfo {
	return ServerInfo{"system": "memory", "features": "none"}
}

// truncatingWriter silently drops everything past its limit, like a
// connection that dies mid-upload without reporting an error.
type truncatingWriter struct {
	afero.File
	remaining int64
}

func (w *truncatingWriter) Write(b []byte) (int, error) {
	n := int64(len(b))
	if n > w.remaining {
		n = w.remaining
	}
	if n > 0 {
		if _, err := w.File.Write(b[:n]); err != nil {
			return 0, err
		}
		w.remaining -= n
	}
	return len(b), nil
}

func (t *memTransport) writeFile(p, contents string) {
	afero.WriteFile(t.fs, p, []byte(contents), 0644)
}

type recordingPauser struct {
	calls []string
}

func (p *recordingPauser) Pause()  { p.calls = append(p.calls, "pause") }
func (p *recordingPauser) Resume() { p.calls = append(p.calls, "resume") }

type memTrustStore struct {
	trusted map[string]bool
}

func (s *memTrustStore) IsTrusted(fingerprint string) bool {
	return s.trusted[fingerprint]
}

func (s *memTrustStore) Add(fingerprint string) error {
	if s.trusted == nil {
		s.trusted = map[string]bool{}
	}
	s.trusted[fingerprint] = true
	return nil
}
