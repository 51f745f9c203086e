package remote

import (
	"time"

	"github.com/sidkik/syncbox/pkg/metrics"
)

const (
	// initialKeepAliveDelay is the wait before the first keep-alive after
	// connecting.
	initialKeepAliveDelay = 10 * time.Second

	defaultHealthCheckInterval = 30 * time.Second
)

// startKeepAlive starts the keep-alive loop if it's enabled and the session
// is connected. A running loop is replaced.
func (s *Session) startKeepAlive() {
	if s.cfg.KeepAlive <= 0 || s.State() != Connected {
		return
	}

	s.keepAliveLock.Lock()
	defer s.keepAliveLock.Unlock()

	if s.keepAliveStop != nil {
		close(s.keepAliveStop)
	}
	stop := make(chan struct{})
	s.keepAliveStop = stop
	go s.runKeepAlive(stop)
}

func (s *Session) stopKeepAlive() {
	s.keepAliveLock.Lock()
	defer s.keepAliveLock.Unlock()

	if s.keepAliveStop != nil {
		close(s.keepAliveStop)
		s.keepAliveStop = nil
	}
}

func (s *Session) runKeepAlive(stop chan struct{}) {
	wait := initialKeepAliveDelay
	for {
		select {
		case <-stop:
			return
		case <-s.clock.After(wait):
		}

		select {
		case <-stop:
			return
		default:
		}

		wait = s.cfg.KeepAlive
		s.sendKeepAlive()
	}
}

// sendKeepAlive sends a no-op unless the session is busy. A failed no-op
// means the connection is gone, so it triggers a reconnect.
func (s *Session) sendKeepAlive() {
	if s.syncInProgress != nil && s.syncInProgress() {
		metrics.RecordKeepAlive(true, nil)
		return
	}
	if !s.lock.TryLock() {
		metrics.RecordKeepAlive(true, nil)
		return
	}
	err := s.transport.KeepAlive()
	s.lock.Unlock()

	metrics.RecordKeepAlive(false, err)
	if err == nil {
		s.log.Debug("Sent keep-alive")
		return
	}

	s.log.WithError(err).Warn("Keep-alive failed")
	s.connectionLost(err.Error())
	s.Reconnect(s.ctx)
}

func (s *Session) connectionLost(reason string) {
	s.setState(Disconnected)
	s.events.connectionClosed(reason)
}

func (s *Session) startHealthCheck() {
	if s.healthInterval <= 0 {
		return
	}
	s.healthCheckOnce.Do(func() {
		go s.runHealthCheck()
	})
}

func (s *Session) runHealthCheck() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.clock.After(s.healthInterval):
		}
		s.checkHealth()
	}
}

// checkHealth reconnects a session whose connection dropped. Sessions that
// were disconnected on purpose, or never connected, are left alone.
func (s *Session) checkHealth() {
	if !s.wasConnected.Load() || s.userDisconnect.Load() || s.reconnecting.Load() {
		return
	}

	switch s.State() {
	case Connecting:
		return
	case Connected:
		if !s.lock.TryLock() {
			// An operation is running, so the connection is in use.
			return
		}
		alive := s.transport.Connected()
		s.lock.Unlock()
		if alive {
			return
		}
		s.log.Warn("Connection to the server was lost")
		s.connectionLost("connection to the server was lost")
	}

	s.Reconnect(s.ctx)
}
