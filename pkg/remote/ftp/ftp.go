// Package ftp implements remote.Transport for FTP and FTPS servers.
package ftp

import (
	"context"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	ftplib "github.com/jlaffaye/ftp"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

// Mode selects how the connection is encrypted.
type Mode int

const (
	// Plain is unencrypted FTP.
	Plain Mode = iota

	// Explicit upgrades the control connection with AUTH TLS.
	Explicit

	// Implicit starts TLS before the FTP greeting.
	Implicit
)

func (m Mode) String() string {
	switch m {
	case Explicit:
		return "explicit"
	case Implicit:
		return "implicit"
	default:
		return "plain"
	}
}

// Config contains the connection settings for an FTP server.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mode     Mode
	Timeout  time.Duration
}

// conn is the subset of *ftplib.ServerConn that the transport uses.
type conn interface {
	Login(user, password string) error
	Quit() error
	NoOp() error
	ChangeDir(path string) error
	CurrentDir() (string, error)
	List(path string) ([]*ftplib.Entry, error)
	FileSize(path string) (int64, error)
	GetTime(path string) (time.Time, error)
	IsGetTimeSupported() bool
	IsTimePreciseInList() bool
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	Rename(from, to string) error
	Delete(path string) error
	MakeDir(path string) error
	RemoveDir(path string) error
}

type serverConn struct {
	*ftplib.ServerConn
}

func (c serverConn) Retr(p string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(p)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// dial is mocked in the tests.
var dial = func(addr string, opts ...ftplib.DialOption) (conn, error) {
	c, err := ftplib.Dial(addr, opts...)
	if err != nil {
		return nil, err
	}
	return serverConn{c}, nil
}

// roots is the pool used to verify server certificates. nil means the
// system pool.
var roots *x509.CertPool

// Transport is a connection to an FTP server.
type Transport struct {
	cfg  Config
	conn conn

	// trust and hookErr are only used while Connect runs.
	trust   remote.TrustFunc
	hookErr error

	// pinned is the certificate collected by a bootstrap handshake.
	pinned *x509.Certificate

	// accepted is the fingerprint that passed the trust check, so that data
	// connections to the same server aren't checked again.
	accepted string
}

// New returns a disconnected transport.
func New(cfg Config) *Transport {
	if cfg.Port == 0 {
		cfg.Port = 21
		if cfg.Mode == Implicit {
			cfg.Port = 990
		}
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

// Connect implements remote.Transport.
func (t *Transport) Connect(ctx context.Context, trust remote.TrustFunc) error {
	t.trust = trust
	t.hookErr = nil

	opts := []ftplib.DialOption{ftplib.DialWithContext(ctx)}
	if t.cfg.Timeout > 0 {
		opts = append(opts, ftplib.DialWithTimeout(t.cfg.Timeout))
	}
	switch t.cfg.Mode {
	case Explicit:
		opts = append(opts, ftplib.DialWithExplicitTLS(t.tlsConfig()))
	case Implicit:
		opts = append(opts, ftplib.DialWithTLS(t.tlsConfig()))
	}

	c, err := dial(t.addr(), opts...)
	if err != nil {
		// The handshake error hides why the certificate was refused.
		if t.hookErr != nil {
			return t.hookErr
		}
		return classify(err, "dial", t.cfg.Host)
	}

	if err := c.Login(t.cfg.Username, t.cfg.Password); err != nil {
		if quitErr := c.Quit(); quitErr != nil {
			log.WithError(quitErr).Debug("Failed to quit after failed login")
		}
		return errors.WithContext(err, "login")
	}
	t.conn = c
	return nil
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: t.cfg.Host,
		// Verification is done by verifyPeer, which consults the trust
		// store for certificates the system doesn't trust.
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: t.verifyPeer,
		MinVersion:            tls.VersionTLS12,
		// Many servers require data connections to resume the control
		// connection's session.
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
	}
}

func (t *Transport) verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		t.hookErr = errors.New("server didn't present a certificate")
		return t.hookErr
	}

	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		t.hookErr = errors.WithContext(err, "parse server certificate")
		return t.hookErr
	}

	fingerprint := Fingerprint(leaf)
	if fingerprint == t.accepted {
		return nil
	}

	systemErr := verifySystem(leaf, rawCerts[1:], t.cfg.Host)
	if systemErr != nil {
		if t.pinned == nil {
			log.WithError(systemErr).WithField("fingerprint", fingerprint).Debug(
				"Collected untrusted server certificate")
			t.pinned = leaf
			t.hookErr = errors.ErrCertBootstrap
			return t.hookErr
		}
		if !t.pinned.Equal(leaf) {
			t.pinned = nil
			t.hookErr = errors.New("server certificate changed while connecting")
			return t.hookErr
		}
	}

	if t.trust != nil && !t.trust(certificateInfo(leaf, fingerprint)) {
		t.hookErr = errors.TrustRejected{Fingerprint: fingerprint}
		return t.hookErr
	}
	t.accepted = fingerprint
	return nil
}

func verifySystem(leaf *x509.Certificate, rest [][]byte, host string) error {
	intermediates := x509.NewCertPool()
	for _, raw := range rest {
		if cert, err := x509.ParseCertificate(raw); err == nil {
			intermediates.AddCert(cert)
		}
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         roots,
		Intermediates: intermediates,
	})
	return err
}

// Fingerprint returns the thumbprint of cert: the uppercase hex SHA-1 of its
// DER encoding.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func certificateInfo(cert *x509.Certificate, fingerprint string) remote.CertificateInfo {
	return remote.CertificateInfo{
		Fingerprint:  fingerprint,
		SerialNumber: strings.ToUpper(cert.SerialNumber.Text(16)),
		Algorithm:    cert.PublicKeyAlgorithm.String(),
		ValidFrom:    cert.NotBefore,
		ValidTo:      cert.NotAfter,
		Issuer:       cert.Issuer.String(),
	}
}

// Close implements remote.Transport.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Quit()
	t.conn = nil
	return err
}

// Connected implements remote.Transport.
func (t *Transport) Connected() bool {
	return t.conn != nil
}

// Getwd implements remote.Transport.
func (t *Transport) Getwd() (string, error) {
	if t.conn == nil {
		return "", errors.ErrNotConnected
	}
	return t.conn.CurrentDir()
}

// ChangeDir implements remote.Transport.
func (t *Transport) ChangeDir(dir string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.conn.ChangeDir(dir), "cd", dir)
}

// List implements remote.Transport.
func (t *Transport) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := t.conn.List(dir)
	if err != nil {
		return nil, classify(err, "list", dir)
	}

	converted := make([]remote.Entry, 0, len(entries))
	for _, e := range entries {
		converted = append(converted, convertEntry(e))
	}
	return converted, nil
}

func convertEntry(e *ftplib.Entry) remote.Entry {
	typ := remote.Other
	switch e.Type {
	case ftplib.EntryTypeFile:
		typ = remote.File
	case ftplib.EntryTypeFolder:
		typ = remote.Folder
	}

	// Some servers list entries with a path relative to the listed folder.
	name := e.Name
	var p string
	if strings.Contains(name, "/") {
		if slices.Contains(strings.Split(name, "/"), "..") {
			log.WithField("name", name).Warn("Ignoring listed entry that points outside its folder")
			return remote.Entry{Name: name, Type: remote.Other}
		}
		p = name
		name = path.Base(name)
	}

	return remote.Entry{
		Name:    name,
		Path:    p,
		Type:    typ,
		Size:    int64(e.Size),
		ModTime: e.Time,
	}
}

// FileExists implements remote.Transport.
func (t *Transport) FileExists(p string) (bool, error) {
	if t.conn == nil {
		return false, errors.ErrNotConnected
	}
	if _, err := t.conn.FileSize(p); err != nil {
		if isUnavailable(err) {
			return false, nil
		}
		return false, classify(err, "size", p)
	}
	return true, nil
}

// DirExists implements remote.Transport. It changes into p and back again.
func (t *Transport) DirExists(p string) (bool, error) {
	if t.conn == nil {
		return false, errors.ErrNotConnected
	}

	cwd, err := t.conn.CurrentDir()
	if err != nil {
		return false, classify(err, "pwd", p)
	}
	if err := t.conn.ChangeDir(p); err != nil {
		if isUnavailable(err) {
			return false, nil
		}
		return false, classify(err, "cd", p)
	}
	if err := t.conn.ChangeDir(cwd); err != nil {
		return true, classify(err, "cd", cwd)
	}
	return true, nil
}

// Size implements remote.Transport.
func (t *Transport) Size(p string) (int64, error) {
	if t.conn == nil {
		return -1, errors.ErrNotConnected
	}
	size, err := t.conn.FileSize(p)
	if err != nil {
		return -1, classify(err, "size", p)
	}
	return size, nil
}

// ModTime implements remote.Transport. Servers without MDTM support fall
// back to the time in the parent folder's listing.
func (t *Transport) ModTime(p string) (time.Time, error) {
	if t.conn == nil {
		return time.Time{}, errors.ErrNotConnected
	}

	if t.conn.IsGetTimeSupported() {
		modTime, err := t.conn.GetTime(p)
		if err != nil {
			return time.Time{}, classify(err, "mdtm", p)
		}
		return modTime, nil
	}

	entries, err := t.conn.List(path.Dir(p))
	if err != nil {
		return time.Time{}, classify(err, "list", path.Dir(p))
	}
	for _, e := range entries {
		if path.Base(e.Name) == path.Base(p) && e.Type == ftplib.EntryTypeFile {
			return e.Time, nil
		}
	}
	return time.Time{}, errors.FileNotFound{Path: p}
}

// OpenRead implements remote.Transport.
func (t *Transport) OpenRead(p string) (io.ReadCloser, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}
	r, err := t.conn.Retr(p)
	if err != nil {
		return nil, classify(err, "retr", p)
	}
	return r, nil
}

// OpenWrite implements remote.Transport. The server reads the upload from a
// pipe, so Close must be called to finish the transfer.
func (t *Transport) OpenWrite(p string) (io.WriteCloser, error) {
	if t.conn == nil {
		return nil, errors.ErrNotConnected
	}

	pr, pw := io.Pipe()
	w := &storWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		err := t.conn.Stor(p, pr)
		pr.CloseWithError(err)
		w.done <- classify(err, "stor", p)
	}()
	return w, nil
}

type storWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *storWriter) Write(b []byte) (int, error) {
	return w.pw.Write(b)
}

func (w *storWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

// Rename implements remote.Transport.
func (t *Transport) Rename(from, to string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.conn.Rename(from, to), "rename", from)
}

// Delete implements remote.Transport.
func (t *Transport) Delete(p string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.conn.Delete(p), "dele", p)
}

// MakeDir implements remote.Transport.
func (t *Transport) MakeDir(p string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.conn.MakeDir(p), "mkd", p)
}

// RemoveDir implements remote.Transport.
func (t *Transport) RemoveDir(p string) error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.conn.RemoveDir(p), "rmd", p)
}

// KeepAlive implements remote.Transport by sending NOOP.
func (t *Transport) KeepAlive() error {
	if t.conn == nil {
		return errors.ErrNotConnected
	}
	return classify(t.conn.NoOp(), "noop", "")
}

// ServerInfo implements remote.Transport.
func (t *Transport) ServerInfo() remote.ServerInfo {
	info := remote.ServerInfo{
		"protocol":   "ftp",
		"encryption": t.cfg.Mode.String(),
		"address":    t.addr(),
	}
	if t.conn != nil {
		info["mdtm"] = strconv.FormatBool(t.conn.IsGetTimeSupported())
		info["precise_list_times"] = strconv.FormatBool(t.conn.IsTimePreciseInList())
	}
	if t.accepted != "" {
		info["certificate"] = t.accepted
	}
	return info
}

// isUnavailable returns whether err is the server's reply for a path that
// doesn't exist.
func isUnavailable(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == ftplib.StatusFileUnavailable
}

// classify converts protocol errors into the error kinds the rest of the
// program understands.
func classify(err error, op, p string) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Timeout{Op: fmt.Sprintf("%s %s", op, p)}
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case ftplib.StatusNotLoggedIn:
			return errors.PermissionDenied{Path: p}
		case ftplib.StatusFileUnavailable:
			if strings.Contains(strings.ToLower(protoErr.Msg), "permission") {
				return errors.PermissionDenied{Path: p}
			}
		}
	}
	return errors.WithContext(err, op)
}
