package remote

import (
	"sync"
	"time"
)

// Observer receives the events published by a Session. Methods are called
// synchronously from the goroutine that produced the event, so they should
// return quickly.
type Observer interface {
	OnProgress(TransferProgress)
	OnConnectionClosed(reason string)
	OnReconnectFailed(err error)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// functions are skipped.
type ObserverFuncs struct {
	Progress         func(TransferProgress)
	ConnectionClosed func(reason string)
	ReconnectFailed  func(err error)
}

// OnProgress implements Observer.
func (o ObserverFuncs) OnProgress(p TransferProgress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// OnConnectionClosed implements Observer.
func (o ObserverFuncs) OnConnectionClosed(reason string) {
	if o.ConnectionClosed != nil {
		o.ConnectionClosed(reason)
	}
}

// OnReconnectFailed implements Observer.
func (o ObserverFuncs) OnReconnectFailed(err error) {
	if o.ReconnectFailed != nil {
		o.ReconnectFailed(err)
	}
}

// broadcaster fans events out to the subscribed observers.
type broadcaster struct {
	mu        sync.RWMutex
	nextID    int
	observers map[int]Observer
}

func newBroadcaster() *broadcaster {
	return &broadcaster{observers: map[int]Observer{}}
}

// subscribe adds an observer and returns a function that removes it.
func (b *broadcaster) subscribe(o Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = o
	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

func (b *broadcaster) each(fn func(Observer)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.observers {
		fn(o)
	}
}

func (b *broadcaster) progress(p TransferProgress) {
	b.each(func(o Observer) { o.OnProgress(p) })
}

func (b *broadcaster) connectionClosed(reason string) {
	b.each(func(o Observer) { o.OnConnectionClosed(reason) })
}

func (b *broadcaster) reconnectFailed(err error) {
	b.each(func(o Observer) { o.OnReconnectFailed(err) })
}

// CertificateInfo describes a server identity that isn't trusted yet.
// Certificate based transports fill in the X.509 fields, host key based
// transports fill in Key and KeySize.
type CertificateInfo struct {
	Fingerprint string

	SerialNumber string
	Algorithm    string
	ValidFrom    time.Time
	ValidTo      time.Time
	Issuer       string

	Key     string
	KeySize int
}

// Validator decides whether an unknown server identity should be trusted.
// It is called while the handshake is suspended, and its answer is applied
// to that handshake.
type Validator func(CertificateInfo) bool

// TrustFunc is handed to a Transport when it connects. The transport calls
// it from inside its handshake and must abort the handshake if it returns
// false.
type TrustFunc func(CertificateInfo) bool

// TrustStore is the persisted set of trusted fingerprints.
type TrustStore interface {
	IsTrusted(fingerprint string) bool
	Add(fingerprint string) error
}
