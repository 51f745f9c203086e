// Package sftp implements remote.Transport for SFTP servers.
package sftp

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

// Config contains the connection settings for an SFTP server.
type Config struct {
	Host     string
	Port     int
	Username string

	// Password is used for password authentication, or as the passphrase of
	// PrivateKeyFile if it's encrypted.
	Password string

	PrivateKeyFile string
	Timeout        time.Duration
}

// fileClient is the subset of *sftp.Client that the transport uses.
type fileClient interface {
	Getwd() (string, error)
	ReadDir(p string) ([]os.FileInfo, error)
	Stat(p string) (os.FileInfo, error)
	Open(p string) (io.ReadCloser, error)
	Create(p string) (io.WriteCloser, error)
	Rename(from, to string) error
	Remove(p string) error
	RemoveDirectory(p string) error
	Mkdir(p string) error
	Close() error
}

// sshConn is the subset of *ssh.Client that the transport uses.
type sshConn interface {
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
	ServerVersion() []byte
	ClientVersion() []byte
	RemoteAddr() net.Addr
	Wait() error
	Close() error
}

type sftpClient struct {
	*sftp.Client
}

func (c sftpClient) Open(p string) (io.ReadCloser, error) {
	f, err := c.Client.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (c sftpClient) Create(p string) (io.WriteCloser, error) {
	f, err := c.Client.Create(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// dial is mocked in the tests.
var dial = func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (sshConn, fileClient, error) {
	dialer := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, nil, err
	}
	client := ssh.NewClient(c, chans, reqs)

	files, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, nil, errors.WithContext(err, "start sftp subsystem")
	}
	return client, sftpClient{files}, nil
}

var fs = afero.NewOsFs()

// retryDelay is the wait between listing attempts that timed out.
var retryDelay = time.Second

// Transport is a connection to an SFTP server.
type Transport struct {
	cfg Config

	conn  sshConn
	files fileClient
	cwd   string

	// dropped is set once the ssh connection closes underneath us.
	dropped *atomic.Bool

	hookErr error
	hostKey string
}

// New returns a disconnected transport.
func New(cfg Config) *Transport {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func logBanner(message string) error {
	log.WithField("banner", message).Warn("Server banner")
	return nil
}

// Connect implements remote.Transport.
func (t *Transport) Connect(ctx context.Context, trust remote.TrustFunc) error {
	auth, err := t.authMethods()
	if err != nil {
		return err
	}

	t.hookErr = nil
	cfg := &ssh.ClientConfig{
		User:            t.cfg.Username,
		Auth:            auth,
		HostKeyCallback: t.hostKeyCallback(trust),
		BannerCallback:  logBanner,
		Timeout:         t.cfg.Timeout,
	}

	conn, files, err := dial(ctx, t.addr(), cfg)
	if err != nil {
		if t.hookErr != nil {
			return t.hookErr
		}
		return classify(err, "dial", t.cfg.Host)
	}

	cwd, err := files.Getwd()
	if err != nil {
		files.Close()
		conn.Close()
		return errors.WithContext(err, "get working directory")
	}

	dropped := &atomic.Bool{}
	go func() {
		conn.Wait()
		dropped.Store(true)
	}()

	t.conn = conn
	t.files = files
	t.cwd = cwd
	t.dropped = dropped
	return nil
}

func (t *Transport) authMethods() ([]ssh.AuthMethod, error) {
	if t.cfg.PrivateKeyFile == "" {
		password := t.cfg.Password
		return []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		}, nil
	}

	key, err := afero.ReadFile(fs, t.cfg.PrivateKeyFile)
	if err != nil {
		return nil, errors.WithContext(err, "read private key")
	}

	signer, err := ssh.ParsePrivateKey(key)
	if _, ok := err.(*ssh.PassphraseMissingError); ok {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(t.cfg.Password))
	}
	if err != nil {
		return nil, errors.WithContext(err, "parse private key")
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func (t *Transport) hostKeyCallback(trust remote.TrustFunc) ssh.HostKeyCallback {
	return func(hostname string, addr net.Addr, key ssh.PublicKey) error {
		info := hostKeyInfo(key)
		if trust != nil && !trust(info) {
			t.hookErr = errors.TrustRejected{Fingerprint: info.Fingerprint}
			return t.hookErr
		}
		t.hostKey = info.Fingerprint
		return nil
	}
}

func hostKeyInfo(key ssh.PublicKey) remote.CertificateInfo {
	return remote.CertificateInfo{
		Fingerprint: ssh.FingerprintSHA256(key),
		Key:         key.Type(),
		KeySize:     keySize(key),
	}
}

// keySize returns the size of key in bits, or 0 if it's unknown.
func keySize(key ssh.PublicKey) int {
	cryptoKey, ok := key.(ssh.CryptoPublicKey)
	if !ok {
		return 0
	}

	switch pub := cryptoKey.CryptoPublicKey().(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	}
	if key.Type() == ssh.KeyAlgoED25519 {
		return 256
	}
	return 0
}

// Close implements remote.Transport.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}

	filesErr := t.files.Close()
	connErr := t.conn.Close()
	t.conn = nil
	t.files = nil
	if filesErr != nil {
		return filesErr
	}
	return connErr
}

// Connected implements remote.Transport. It turns false as soon as the ssh
// connection closes, even if Close wasn't called.
func (t *Transport) Connected() bool {
	return t.conn != nil && !t.dropped.Load()
}

// Getwd implements remote.Transport.
func (t *Transport) Getwd() (string, error) {
	if t.conn == nil {
		return "", errors.ErrNotConnected
	}
	return t.cwd, nil
}

// ChangeDir implements remote.Transport. SFTP has no server side working
// directory, so it's only tracked here.
func (t *Transport) ChangeDir(dir string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	if !path.IsAbs(dir) {
		dir = path.Join(t.cwd, dir)
	}

	fi, err := t.files.Stat(dir)
	if err != nil {
		return classify(err, "cd", dir)
	}
	if !fi.IsDir() {
		return errors.NewFriendlyError("%s is not a folder", dir)
	}
	t.cwd = path.Clean(dir)
	return nil
}

// List implements remote.Transport. Listings that time out are retried until
// ctx is cancelled.
func (t *Transport) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}

	for {
		infos, err := t.files.ReadDir(dir)
		if err == nil {
			entries := make([]remote.Entry, 0, len(infos))
			for _, fi := range infos {
				entries = append(entries, convertEntry(fi))
			}
			return entries, nil
		}

		if !isTimeout(err) {
			return nil, classify(err, "list", dir)
		}
		log.WithError(err).WithField("path", dir).Debug("Listing timed out, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func convertEntry(fi os.FileInfo) remote.Entry {
	typ := remote.Other
	switch {
	case fi.IsDir():
		typ = remote.Folder
	case fi.Mode().IsRegular():
		typ = remote.File
	}
	return remote.Entry{
		Name:    fi.Name(),
		Type:    typ,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
}

// FileExists implements remote.Transport.
func (t *Transport) FileExists(p string) (bool, error) {
	fi, err := t.stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "stat", p)
	}
	return !fi.IsDir(), nil
}

// DirExists implements remote.Transport.
func (t *Transport) DirExists(p string) (bool, error) {
	fi, err := t.stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "stat", p)
	}
	return fi.IsDir(), nil
}

// Size implements remote.Transport.
func (t *Transport) Size(p string) (int64, error) {
	fi, err := t.stat(p)
	if err != nil {
		return -1, classify(err, "stat", p)
	}
	return fi.Size(), nil
}

// ModTime implements remote.Transport.
func (t *Transport) ModTime(p string) (time.Time, error) {
	fi, err := t.stat(p)
	if err != nil {
		return time.Time{}, classify(err, "stat", p)
	}
	return fi.ModTime(), nil
}

func (t *Transport) stat(p string) (os.FileInfo, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}
	return t.files.Stat(p)
}

// OpenRead implements remote.Transport.
func (t *Transport) OpenRead(p string) (io.ReadCloser, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}
	r, err := t.files.Open(p)
	return r, classify(err, "open", p)
}

// OpenWrite implements remote.Transport.
func (t *Transport) OpenWrite(p string) (io.WriteCloser, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}
	w, err := t.files.Create(p)
	return w, classify(err, "create", p)
}

// Rename implements remote.Transport.
func (t *Transport) Rename(from, to string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.files.Rename(from, to), "rename", from)
}

// Delete implements remote.Transport.
func (t *Transport) Delete(p string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.files.Remove(p), "remove", p)
}

// MakeDir implements remote.Transport.
func (t *Transport) MakeDir(p string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.files.Mkdir(p), "mkdir", p)
}

// RemoveDir implements remote.Transport.
func (t *Transport) RemoveDir(p string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.files.RemoveDirectory(p), "rmdir", p)
}

// KeepAlive implements remote.Transport with the OpenSSH keep-alive global
// request.
func (t *Transport) KeepAlive() error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	_, _, err := t.conn.SendRequest("keepalive@openssh.com", true, nil)
	return classify(err, "keepalive", "")
}

// ServerInfo implements remote.Transport.
func (t *Transport) ServerInfo() remote.ServerInfo {
	info := remote.ServerInfo{
		"protocol": "sftp",
		"address":  t.addr(),
	}
	if t.conn != nil {
		info["server_version"] = string(t.conn.ServerVersion())
		info["client_version"] = string(t.conn.ClientVersion())
		info["remote_addr"] = t.conn.RemoteAddr().String()
	}
	if t.hostKey != "" {
		info["host_key"] = t.hostKey
	}
	return info
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func classify(err error, op, p string) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return errors.Timeout{Op: op + " " + p}
	}
	if errors.Is(err, os.ErrPermission) {
		return errors.PermissionDenied{Path: p}
	}
	return errors.WithContext(err, op)
}
