package ftp

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net/textproto"
	"testing"
	"time"

	ftplib "github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

var errUnavailable = &textproto.Error{Code: ftplib.StatusFileUnavailable, Msg: "No such file or directory"}

type fakeConn struct {
	cwd      string
	dirs     map[string]bool
	files    map[string][]byte
	entries  map[string][]*ftplib.Entry
	modTimes map[string]time.Time
	mdtm     bool
	storErr  error
	loginErr error
	quit     bool
	noops    int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		cwd:      "/home",
		dirs:     map[string]bool{"/": true, "/home": true},
		files:    map[string][]byte{},
		entries:  map[string][]*ftplib.Entry{},
		modTimes: map[string]time.Time{},
	}
}

func (c *fakeConn) Login(user, password string) error { return c.loginErr }
func (c *fakeConn) Quit() error                       { c.quit = true; return nil }
func (c *fakeConn) NoOp() error                       { c.noops++; return nil }
func (c *fakeConn) CurrentDir() (string, error)       { return c.cwd, nil }
func (c *fakeConn) IsGetTimeSupported() bool          { return c.mdtm }
func (c *fakeConn) IsTimePreciseInList() bool         { return false }

func (c *fakeConn) ChangeDir(p string) error {
	if !c.dirs[p] {
		return errUnavailable
	}
	c.cwd = p
	return nil
}

func (c *fakeConn) List(p string) ([]*ftplib.Entry, error) {
	entries, ok := c.entries[p]
	if !ok {
		return nil, errUnavailable
	}
	return entries, nil
}

func (c *fakeConn) FileSize(p string) (int64, error) {
	contents, ok := c.files[p]
	if !ok {
		return 0, errUnavailable
	}
	return int64(len(contents)), nil
}

func (c *fakeConn) GetTime(p string) (time.Time, error) {
	modTime, ok := c.modTimes[p]
	if !ok {
		return time.Time{}, errUnavailable
	}
	return modTime, nil
}

func (c *fakeConn) Retr(p string) (io.ReadCloser, error) {
	contents, ok := c.files[p]
	if !ok {
		return nil, errUnavailable
	}
	return io.NopCloser(bytes.NewReader(contents)), nil
}

func (c *fakeConn) Stor(p string, r io.Reader) error {
	if c.storErr != nil {
		return c.storErr
	}
	contents, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.files[p] = contents
	return nil
}

func (c *fakeConn) Rename(from, to string) error {
	contents, ok := c.files[from]
	if !ok {
		return errUnavailable
	}
	delete(c.files, from)
	c.files[to] = contents
	return nil
}

func (c *fakeConn) Delete(p string) error {
	if _, ok := c.files[p]; !ok {
		return errUnavailable
	}
	delete(c.files, p)
	return nil
}

func (c *fakeConn) MakeDir(p string) error {
	c.dirs[p] = true
	return nil
}

func (c *fakeConn) RemoveDir(p string) error {
	delete(c.dirs, p)
	return nil
}

func selfSigned(t *testing.T, host string) ([]byte, *x509.Certificate) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(0xbeef),
		Subject:               pkix.Name{CommonName: host},
		DNSNames:              []string{host},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return der, cert
}

type trustRecorder struct {
	answer bool
	asked  []remote.CertificateInfo
}

func (r *trustRecorder) trust(info remote.CertificateInfo) bool {
	r.asked = append(r.asked, info)
	return r.answer
}

func TestVerifyPeerBootstrap(t *testing.T) {
	der, cert := selfSigned(t, "ftp.example.com")
	recorder := &trustRecorder{answer: true}
	tr := New(Config{Host: "ftp.example.com", Mode: Explicit})
	tr.trust = recorder.trust

	// The first handshake only collects the certificate.
	err := tr.verifyPeer([][]byte{der}, nil)
	assert.Equal(t, errors.ErrCertBootstrap, err)
	assert.Empty(t, recorder.asked)

	// The second one asks whether to trust it.
	require.NoError(t, tr.verifyPeer([][]byte{der}, nil))
	require.Len(t, recorder.asked, 1)

	info := recorder.asked[0]
	assert.Equal(t, Fingerprint(cert), info.Fingerprint)
	assert.Len(t, info.Fingerprint, 40)
	assert.Equal(t, "BEEF", info.SerialNumber)
	assert.Equal(t, "ECDSA", info.Algorithm)
	assert.Equal(t, "CN=ftp.example.com", info.Issuer)
	assert.Equal(t, cert.NotAfter, info.ValidTo)

	// Data connections present the same certificate and aren't checked
	// again.
	require.NoError(t, tr.verifyPeer([][]byte{der}, nil))
	assert.Len(t, recorder.asked, 1)
}

func TestVerifyPeerRejected(t *testing.T) {
	der, cert := selfSigned(t, "ftp.example.com")
	recorder := &trustRecorder{answer: false}
	tr := New(Config{Host: "ftp.example.com", Mode: Explicit})
	tr.trust = recorder.trust

	assert.Equal(t, errors.ErrCertBootstrap, tr.verifyPeer([][]byte{der}, nil))
	err := tr.verifyPeer([][]byte{der}, nil)
	assert.Equal(t, errors.TrustRejected{Fingerprint: Fingerprint(cert)}, err)
	assert.Equal(t, err, tr.hookErr)
}

func TestVerifyPeerCertificateChanged(t *testing.T) {
	first, _ := selfSigned(t, "ftp.example.com")
	second, _ := selfSigned(t, "ftp.example.com")
	recorder := &trustRecorder{answer: true}
	tr := New(Config{Host: "ftp.example.com", Mode: Explicit})
	tr.trust = recorder.trust

	assert.Equal(t, errors.ErrCertBootstrap, tr.verifyPeer([][]byte{first}, nil))
	assert.Error(t, tr.verifyPeer([][]byte{second}, nil))
	assert.Empty(t, recorder.asked)
}

func TestVerifyPeerSystemTrusted(t *testing.T) {
	der, cert := selfSigned(t, "ftp.example.com")
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	roots = pool
	defer func() { roots = nil }()

	recorder := &trustRecorder{answer: true}
	tr := New(Config{Host: "ftp.example.com", Mode: Implicit})
	tr.trust = recorder.trust

	// Certificates with a valid chain skip the bootstrap but are still
	// checked against the trust store.
	require.NoError(t, tr.verifyPeer([][]byte{der}, nil))
	assert.Len(t, recorder.asked, 1)
	assert.Nil(t, tr.pinned)
}

func TestVerifyPeerNoCertificate(t *testing.T) {
	tr := New(Config{Host: "ftp.example.com", Mode: Explicit})
	assert.Error(t, tr.verifyPeer(nil, nil))
}

func mockDial(t *testing.T, c *fakeConn, handshake func() error) {
	oldDial := dial
	dial = func(addr string, opts ...ftplib.DialOption) (conn, error) {
		if handshake != nil {
			if err := handshake(); err != nil {
				return nil, errors.New("remote error: tls: bad certificate")
			}
		}
		return c, nil
	}
	t.Cleanup(func() { dial = oldDial })
}

func TestConnect(t *testing.T) {
	c := newFakeConn()
	mockDial(t, c, nil)

	tr := New(Config{Host: "ftp.example.com", Username: "user", Password: "pass"})
	assert.Equal(t, "ftp.example.com:21", tr.addr())
	require.NoError(t, tr.Connect(context.Background(), nil))
	assert.True(t, tr.Connected())

	wd, err := tr.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "/home", wd)

	require.NoError(t, tr.Close())
	assert.True(t, c.quit)
	assert.False(t, tr.Connected())

	_, err = tr.Getwd()
	assert.Equal(t, errors.ErrNotConnected, err)
}

func TestConnectLoginFailure(t *testing.T) {
	c := newFakeConn()
	c.loginErr = &textproto.Error{Code: ftplib.StatusNotLoggedIn, Msg: "Login incorrect."}
	mockDial(t, c, nil)

	tr := New(Config{Host: "ftp.example.com"})
	err := tr.Connect(context.Background(), nil)
	assert.EqualError(t, err, "login: 530 Login incorrect.")
	assert.True(t, c.quit)
	assert.False(t, tr.Connected())
}

func TestConnectBootstrap(t *testing.T) {
	der, _ := selfSigned(t, "ftp.example.com")
	c := newFakeConn()
	tr := New(Config{Host: "ftp.example.com", Mode: Explicit})
	mockDial(t, c, func() error { return tr.verifyPeer([][]byte{der}, nil) })

	recorder := &trustRecorder{answer: true}
	err := tr.Connect(context.Background(), recorder.trust)
	assert.Equal(t, errors.ErrCertBootstrap, err)
	assert.False(t, tr.Connected())

	require.NoError(t, tr.Connect(context.Background(), recorder.trust))
	assert.True(t, tr.Connected())
	assert.Len(t, recorder.asked, 1)
}

func TestConnectImplicitPort(t *testing.T) {
	tr := New(Config{Host: "::1", Mode: Implicit})
	assert.Equal(t, "[::1]:990", tr.addr())
}

func TestConvertEntry(t *testing.T) {
	modTime := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		entry ftplib.Entry
		exp   remote.Entry
	}{
		{
			name:  "File",
			entry: ftplib.Entry{Name: "a.txt", Type: ftplib.EntryTypeFile, Size: 10, Time: modTime},
			exp:   remote.Entry{Name: "a.txt", Type: remote.File, Size: 10, ModTime: modTime},
		},
		{
			name:  "Folder",
			entry: ftplib.Entry{Name: "dir", Type: ftplib.EntryTypeFolder},
			exp:   remote.Entry{Name: "dir", Type: remote.Folder},
		},
		{
			name:  "Link",
			entry: ftplib.Entry{Name: "link", Type: ftplib.EntryTypeLink, Target: "a.txt"},
			exp:   remote.Entry{Name: "link", Type: remote.Other},
		},
		{
			name:  "RelativePath",
			entry: ftplib.Entry{Name: "./sub/b.txt", Type: ftplib.EntryTypeFile, Size: 3},
			exp:   remote.Entry{Name: "b.txt", Path: "./sub/b.txt", Type: remote.File, Size: 3},
		},
		{
			name:  "ParentPath",
			entry: ftplib.Entry{Name: "../../etc/passwd", Type: ftplib.EntryTypeFile, Size: 3},
			exp:   remote.Entry{Name: "../../etc/passwd", Type: remote.Other},
		},
		{
			name:  "ParentInside",
			entry: ftplib.Entry{Name: "sub/../../b.txt", Type: ftplib.EntryTypeFile},
			exp:   remote.Entry{Name: "sub/../../b.txt", Type: remote.Other},
		},
		{
			name:  "DotsInName",
			entry: ftplib.Entry{Name: "sub/..b.txt", Type: ftplib.EntryTypeFile},
			exp:   remote.Entry{Name: "..b.txt", Path: "sub/..b.txt", Type: remote.File},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			entry := test.entry
			assert.Equal(t, test.exp, convertEntry(&entry))
		})
	}
}

func connectedTransport(t *testing.T, c *fakeConn) *Transport {
	mockDial(t, c, nil)
	tr := New(Config{Host: "ftp.example.com"})
	require.NoError(t, tr.Connect(context.Background(), nil))
	return tr
}

func TestExists(t *testing.T) {
	c := newFakeConn()
	c.dirs["/home/dir"] = true
	c.files["/home/a.txt"] = []byte("abc")
	tr := connectedTransport(t, c)

	exists, err := tr.FileExists("/home/a.txt")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = tr.FileExists("/home/missing")
	assert.NoError(t, err)
	assert.False(t, exists)

	exists, err = tr.DirExists("/home/dir")
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "/home", c.cwd)

	exists, err = tr.DirExists("/home/missing")
	assert.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "/home", c.cwd)
}

func TestList(t *testing.T) {
	c := newFakeConn()
	c.entries["/home"] = []*ftplib.Entry{
		{Name: ".", Type: ftplib.EntryTypeFolder},
		{Name: "a.txt", Type: ftplib.EntryTypeFile, Size: 3},
	}
	tr := connectedTransport(t, c)

	entries, err := tr.List(context.Background(), "/home")
	require.NoError(t, err)
	assert.Equal(t, []remote.Entry{
		{Name: ".", Type: remote.Folder},
		{Name: "a.txt", Type: remote.File, Size: 3},
	}, entries)

	_, err = tr.List(context.Background(), "/missing")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.List(ctx, "/home")
	assert.Equal(t, context.Canceled, err)
}

func TestModTime(t *testing.T) {
	modTime := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	listTime := time.Date(2019, 3, 2, 8, 0, 0, 0, time.UTC)

	c := newFakeConn()
	c.modTimes["/home/a.txt"] = modTime
	c.entries["/home"] = []*ftplib.Entry{
		{Name: "a.txt", Type: ftplib.EntryTypeFile, Time: listTime},
		{Name: "dir", Type: ftplib.EntryTypeFolder, Time: listTime},
	}
	tr := connectedTransport(t, c)

	// Without MDTM, the time comes from the listing.
	actual, err := tr.ModTime("/home/a.txt")
	require.NoError(t, err)
	assert.Equal(t, listTime, actual)

	_, err = tr.ModTime("/home/dir")
	assert.Equal(t, errors.FileNotFound{Path: "/home/dir"}, err)

	c.mdtm = true
	actual, err = tr.ModTime("/home/a.txt")
	require.NoError(t, err)
	assert.Equal(t, modTime, actual)
}

func TestTransfer(t *testing.T) {
	c := newFakeConn()
	tr := connectedTransport(t, c)

	w, err := tr.OpenWrite("/home/upload.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, []byte("hello"), c.files["/home/upload.txt"])

	size, err := tr.Size("/home/upload.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	r, err := tr.OpenRead("/home/upload.txt")
	require.NoError(t, err)
	contents, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))
	assert.NoError(t, r.Close())

	_, err = tr.OpenRead("/home/missing")
	assert.Error(t, err)
}

func TestTransferStorFailure(t *testing.T) {
	c := newFakeConn()
	c.storErr = &textproto.Error{Code: ftplib.StatusFileUnavailable, Msg: "Permission denied"}
	tr := connectedTransport(t, c)

	w, err := tr.OpenWrite("/home/upload.txt")
	require.NoError(t, err)
	w.Write([]byte("hello"))
	assert.Equal(t, errors.PermissionDenied{Path: "/home/upload.txt"}, w.Close())
}

func TestKeepAlive(t *testing.T) {
	c := newFakeConn()
	tr := connectedTransport(t, c)

	require.NoError(t, tr.KeepAlive())
	assert.Equal(t, 1, c.noops)

	tr.Close()
	assert.Equal(t, errors.ErrNotConnected, tr.KeepAlive())
}

func TestServerInfo(t *testing.T) {
	c := newFakeConn()
	tr := connectedTransport(t, c)

	info := tr.ServerInfo()
	assert.Equal(t, "plain", info["encryption"])
	assert.Equal(t, "false", info["mdtm"])
	assert.Equal(t, "ftp.example.com:21", info["address"])
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exp  error
	}{
		{"Nil", nil, nil},
		{"Timeout", timeoutError{}, errors.Timeout{Op: "list /dir"}},
		{"NotLoggedIn", &textproto.Error{Code: 530, Msg: "Not logged in"},
			errors.PermissionDenied{Path: "/dir"}},
		{"PermissionDenied", &textproto.Error{Code: 550, Msg: "Permission denied"},
			errors.PermissionDenied{Path: "/dir"}},
		{"Other", errUnavailable,
			errors.WithContext(errUnavailable, "list")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, classify(test.err, "list", "/dir"))
		})
	}
}
