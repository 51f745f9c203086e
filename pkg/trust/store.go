// Package trust persists the server identities that the user has accepted.
package trust

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/errors"
)

// Store is a set of trusted fingerprints backed by a yaml file. Every
// change is written through to the file.
type Store struct {
	path string
	host string

	mu      sync.Mutex
	servers map[string]config.TrustedServer
}

// Load reads the store at path. Fingerprints added through the returned
// store are recorded against host.
func Load(path, host string) (*Store, error) {
	trusted, err := config.ParseTrusted(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:    path,
		host:    host,
		servers: map[string]config.TrustedServer{},
	}
	for _, server := range trusted.Servers {
		s.servers[server.Fingerprint] = server
	}
	return s, nil
}

// LoadDefault reads the store at the default location.
func LoadDefault(host string) (*Store, error) {
	path, err := config.GetTrustedConfigPath()
	if err != nil {
		return nil, errors.WithContext(err, "expand trust store path")
	}
	return Load(path, host)
}

// IsTrusted returns whether the fingerprint has been accepted before.
func (s *Store) IsTrusted(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.servers[fingerprint]
	return ok
}

// Add trusts the fingerprint. Adding a fingerprint twice is a no-op.
func (s *Store) Add(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servers[fingerprint]; ok {
		return nil
	}

	s.servers[fingerprint] = config.TrustedServer{
		Fingerprint: fingerprint,
		Host:        s.host,
		AddedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := s.save(); err != nil {
		delete(s.servers, fingerprint)
		return err
	}

	log.WithField("fingerprint", fingerprint).
		WithField("host", s.host).
		Info("Trusted server identity")
	return nil
}

// Remove stops trusting the fingerprint.
func (s *Store) Remove(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[fingerprint]
	if !ok {
		return errors.NewFriendlyError("%s is not a trusted fingerprint.", fingerprint)
	}

	delete(s.servers, fingerprint)
	if err := s.save(); err != nil {
		s.servers[fingerprint] = server
		return err
	}
	return nil
}

// List returns the trusted servers, oldest first.
func (s *Store) List() []config.TrustedServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

func (s *Store) sorted() []config.TrustedServer {
	servers := make([]config.TrustedServer, 0, len(s.servers))
	for _, server := range s.servers {
		servers = append(servers, server)
	}
	sort.Slice(servers, func(i, j int) bool {
		if !servers[i].AddedAt.Equal(servers[j].AddedAt) {
			return servers[i].AddedAt.Before(servers[j].AddedAt)
		}
		return servers[i].Fingerprint < servers[j].Fingerprint
	})
	return servers
}

func (s *Store) save() error {
	err := config.WriteTrusted(s.path, config.Trusted{Servers: s.sorted()})
	if err != nil {
		return errors.WithContext(err, "save trust store")
	}
	return nil
}
