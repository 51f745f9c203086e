package remote

import (
	"context"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/metrics"
	"github.com/sidkik/syncbox/pkg/trash"
)

// DefaultTempPrefix is prepended to the names of staged transfers.
const DefaultTempPrefix = "~syncbox_"

// State is the connection state of a Session.
type State int32

const (
	// Disconnected means there's no usable transport.
	Disconnected State = iota

	// Connecting means a handshake is in progress.
	Connecting

	// Connected means the session is ready for operations.
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config is the part of the account configuration that the session needs.
// It's fixed for the lifetime of the session.
type Config struct {
	// Host is only used in error messages and logs.
	Host string

	// RemotePath is the remote root. Empty, "/" and "." mean the directory
	// the server starts the user in.
	RemotePath string

	TempPrefix string

	// KeepAlive is the interval between no-ops. Zero disables keep-alive.
	KeepAlive time.Duration

	UploadLimitKBps   int
	DownloadLimitKBps int

	// Debug logs the server's capabilities after connecting.
	Debug bool
}

// IgnoreFunc reports whether an item should be left out of listings.
type IgnoreFunc func(ClientItem) bool

// Pauser pauses local change detection while a download replaces a file.
type Pauser interface {
	Pause()
	Resume()
}

// Recycler removes local files in a way that the user can undo.
type Recycler interface {
	Trash(path string) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used by the session.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithClock replaces the clock used for throttling and timers.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithValidator sets the callback consulted for unknown server identities.
// Without one, every identity is accepted and recorded.
func WithValidator(v Validator) Option {
	return func(s *Session) { s.validator = v }
}

// WithTrustStore sets the store of trusted fingerprints.
func WithTrustStore(store TrustStore) Option {
	return func(s *Session) { s.trustStore = store }
}

// WithIgnore sets the predicate used to skip ignored items when listing.
func WithIgnore(ignore IgnoreFunc) Option {
	return func(s *Session) { s.ignore = ignore }
}

// WithWatcher sets the local change detector paused around download commits.
func WithWatcher(w Pauser) Option {
	return func(s *Session) { s.watcher = w }
}

// WithRecycler sets how existing local files are removed when a download
// replaces them.
func WithRecycler(r Recycler) Option {
	return func(s *Session) { s.recycler = r }
}

// WithSyncInProgress sets a function that reports whether the sync queue is
// busy. Keep-alive ticks are skipped while it returns true.
func WithSyncInProgress(busy func() bool) Option {
	return func(s *Session) { s.syncInProgress = busy }
}

// WithHealthCheck sets the interval of the health check that reconnects a
// dropped session. A non-positive interval disables it.
func WithHealthCheck(interval time.Duration) Option {
	return func(s *Session) { s.healthInterval = interval }
}

// Session is a connection to a remote server over some Transport.
type Session struct {
	cfg       Config
	transport Transport

	log            *logrus.Logger
	clock          clockwork.Clock
	validator      Validator
	trustStore     TrustStore
	ignore         IgnoreFunc
	watcher        Pauser
	recycler       Recycler
	syncInProgress func() bool
	healthInterval time.Duration
	events         *broadcaster

	// lock serializes all access to the transport. root and homePath are
	// only written while it's held.
	lock     sync.Mutex
	root     string
	homePath string

	state           atomic.Int32
	wasConnected    atomic.Bool
	userDisconnect  atomic.Bool
	reconnecting    atomic.Bool
	listingFailed   atomic.Bool
	healthCheckOnce sync.Once

	keepAliveLock sync.Mutex
	keepAliveStop chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a disconnected session that uses transport.
func New(cfg Config, transport Transport, opts ...Option) *Session {
	if cfg.TempPrefix == "" {
		cfg.TempPrefix = DefaultTempPrefix
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:            cfg,
		transport:      transport,
		log:            logrus.StandardLogger(),
		clock:          clockwork.NewRealClock(),
		healthInterval: defaultHealthCheckInterval,
		events:         newBroadcaster(),
		root:           "/",
		ctx:            ctx,
		cancel:         cancel,
	}
	if cfg.KeepAlive > 0 {
		s.healthInterval = cfg.KeepAlive
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.recycler == nil {
		if bin, err := trash.NewDefault(); err == nil {
			s.recycler = bin
		} else {
			s.log.WithError(err).Warn("Failed to set up the trash. " +
				"Downloads won't replace existing files.")
		}
	}
	return s
}

// Subscribe registers an observer for the session's events. The returned
// function unsubscribes it.
func (s *Session) Subscribe(o Observer) func() {
	return s.events.subscribe(o)
}

// State returns the current connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
	metrics.SetConnected(state == Connected)
}

// Connect dials the server, negotiates trust and changes into the remote
// root. isReconnect is only used for logging.
func (s *Session) Connect(ctx context.Context, isReconnect bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	// A connection the server dropped still holds resources on our side.
	s.closeTransport()

	s.userDisconnect.Store(false)
	s.setState(Connecting)
	s.log.WithField("host", s.cfg.Host).WithField("reconnect", isReconnect).Debug("Connecting")

	err := s.transport.Connect(ctx, s.checkTrust)
	if err != nil && errors.Is(err, errors.ErrCertBootstrap) {
		// The transport rejected the first handshake to collect the server
		// certificate. The second attempt presents it.
		s.log.Debug("Retrying connection with the collected server certificate")
		err = s.transport.Connect(ctx, s.checkTrust)
	}
	if err != nil {
		s.setState(Disconnected)

		var rejected errors.TrustRejected
		if errors.As(err, &rejected) {
			return rejected
		}
		return errors.ConnectionError{Host: s.cfg.Host, Err: err}
	}

	home, err := s.transport.Getwd()
	if err != nil {
		s.log.WithError(err).Debug("Failed to get working directory, assuming /")
		home = "/"
	}
	s.homePath = home
	s.root = home

	if !isDefaultRoot(s.cfg.RemotePath) {
		if err := s.transport.ChangeDir(s.cfg.RemotePath); err != nil {
			s.closeTransport()
			s.setState(Disconnected)
			return errors.ConnectionError{Host: s.cfg.Host,
				Err: errors.WithContext(err, "change to remote path")}
		}

		s.root = path.Join(home, s.cfg.RemotePath)
		if path.IsAbs(s.cfg.RemotePath) {
			s.root = path.Clean(s.cfg.RemotePath)
		}
		s.log.WithField("path", s.root).Debug("cd")
	}

	s.setState(Connected)
	s.wasConnected.Store(true)
	s.log.WithField("host", s.cfg.Host).WithField("root", s.root).Info("Connected")

	if s.cfg.Debug {
		s.logServerInfo()
	}

	s.startKeepAlive()
	s.startHealthCheck()
	return nil
}

// Reconnect replaces the session's connection with a new one. If a
// reconnect is already running, it returns immediately. Failures are
// published to observers and are not retried.
func (s *Session) Reconnect(ctx context.Context) error {
	if !s.reconnecting.CompareAndSwap(false, true) {
		return nil
	}
	defer s.reconnecting.Store(false)

	s.log.WithField("host", s.cfg.Host).Info("Reconnecting")
	s.disconnect()

	err := s.Connect(ctx, true)
	metrics.RecordReconnect(err)
	if err != nil {
		s.log.WithError(err).Error("Failed to reconnect")
		s.events.reconnectFailed(err)
		return errors.WithContext(err, "reconnect")
	}
	return nil
}

// Disconnect closes the connection. It's safe to call on a session that
// isn't connected. The health check won't reconnect a session that was
// disconnected this way.
func (s *Session) Disconnect() error {
	s.userDisconnect.Store(true)
	return s.disconnect()
}

func (s *Session) disconnect() error {
	s.stopKeepAlive()

	s.lock.Lock()
	defer s.lock.Unlock()

	err := s.closeTransport()
	s.setState(Disconnected)
	return err
}

// closeTransport must be called with the lock held. Transports have to
// tolerate Close being called when they're not connected. Errors from
// closing a connection that was already lost are only logged.
func (s *Session) closeTransport() error {
	wasConnected := s.transport.Connected()
	err := s.transport.Close()
	if err == nil {
		return nil
	}

	s.log.WithError(err).Debug("Failed to close connection")
	if !wasConnected {
		return nil
	}
	return errors.WithContext(err, "close")
}

// Close disconnects and stops all background tasks. The session can't be
// used afterwards.
func (s *Session) Close() error {
	err := s.Disconnect()
	s.cancel()
	return err
}

// HomePath returns the directory the server put the user in after logging
// in.
func (s *Session) HomePath() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.homePath
}

// Root returns the absolute path of the remote root.
func (s *Session) Root() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.root
}

// WorkingDirectory returns the transport's current directory.
func (s *Session) WorkingDirectory() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.transport.Getwd()
}

// checkTrust is called by the transport while its handshake is suspended.
func (s *Session) checkTrust(info CertificateInfo) bool {
	log := s.log.WithField("fingerprint", info.Fingerprint)
	known := s.trustStore != nil && s.trustStore.IsTrusted(info.Fingerprint)
	if known {
		log.Debug("Trusted server identity")
		return true
	}

	if s.validator == nil {
		log.Debug("No validator set, accepting server identity")
		s.recordTrust(info.Fingerprint)
		return true
	}

	if !s.validator(info) {
		log.Warn("Server identity was rejected")
		return false
	}
	s.recordTrust(info.Fingerprint)
	return true
}

func (s *Session) recordTrust(fingerprint string) {
	if s.trustStore == nil {
		return
	}
	if err := s.trustStore.Add(fingerprint); err != nil {
		s.log.WithError(err).WithField("fingerprint", fingerprint).Warn(
			"Failed to save trusted fingerprint. You'll be asked again next time.")
	}
}

// logServerInfo must be called with the lock held.
func (s *Session) logServerInfo() {
	info := s.transport.ServerInfo()
	var keys []string
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := logrus.Fields{}
	for _, k := range keys {
		fields[k] = info[k]
	}
	s.log.WithFields(fields).Debug("Server info")
}
