package scanner

import (
	"context"
	"sync"

	"github.com/ginjaninja78/felica-ledger/internal/card"
)

// Session holds the current snapshot for a presentation layer. Each
// successful Scan replaces it whole; a failed Scan leaves it untouched.
// Nothing is persisted.
type Session struct {
	scanner *Scanner

	mu      sync.RWMutex
	current *Snapshot
}

// NewSession creates an empty session.
func NewSession(s *Scanner) *Session {
	return &Session{scanner: s}
}

// Scan runs a scan and, on success, makes it the current snapshot.
func (s *Session) Scan(ctx context.Context, reader card.Reader) (*Snapshot, error) {
	snap, err := s.scanner.Scan(ctx, reader)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	return snap.Clone(), nil
}

// Current returns a copy of the current snapshot.
func (s *Session) Current() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, false
	}
	return s.current.Clone(), true
}

// Clear discards the current snapshot.
func (s *Session) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
