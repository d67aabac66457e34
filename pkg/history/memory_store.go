package history

import (
	"context"
	"sort"
	"sync"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/huandu/go-clone"
)

// InMemoryStore is a thread-safe Store keeping turns in process memory.
// Turns are cloned on write and on read.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]*turns.Turn
	closed   bool
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: map[string][]*turns.Turn{},
	}
}

func (s *InMemoryStore) Append(_ context.Context, turn *turns.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	cp := clone.Clone(turn).(*turns.Turn)
	s.sessions[cp.SessionID] = append(s.sessions[cp.SessionID], cp)
	return nil
}

func (s *InMemoryStore) FetchRecent(_ context.Context, sessionID string, limit int) ([]*turns.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*turns.Turn{}, nil
	}

	stored := s.sessions[sessionID]
	ordered := make([]*turns.Turn, len(stored))
	copy(ordered, stored)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	if len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}

	out := make([]*turns.Turn, 0, len(ordered))
	for _, t := range ordered {
		out = append(out, clone.Clone(t).(*turns.Turn))
	}
	return out, nil
}

// Len returns the number of turns stored for a session.
func (s *InMemoryStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

func (s *InMemoryStore) EnsureIndexes(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ensureOpen()
}

func (s *InMemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ensureOpen()
}

func (s *InMemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *InMemoryStore) ensureOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}
