package certificate

import (
	"context"
	"sync"
)

// MemoryStore keeps certificates for the lifetime of the process. Every instance is
// independent: two processes never see each other's certificates.
type MemoryStore struct {
	mu    sync.RWMutex
	certs map[string]Certificate
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certs: make(map[string]Certificate)}
}

func (s *MemoryStore) Put(_ context.Context, c Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[c.CertificateAddress]; !ok {
		s.order = append(s.order, c.CertificateAddress)
	}
	s.certs[c.CertificateAddress] = c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, address string) (Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[address]
	if !ok {
		return Certificate{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Certificate, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.certs[addr])
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, address string, fn func(*Certificate) error) (Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[address]
	if !ok {
		return Certificate{}, ErrNotFound
	}
	issued := c.IssueDate
	if err := fn(&c); err != nil {
		return Certificate{}, err
	}
	// address and issue date are immutable
	c.CertificateAddress, c.IssueDate = address, issued
	s.certs[address] = c
	return c, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certs), nil
}
