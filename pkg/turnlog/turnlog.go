// Package turnlog stores the conversation audit trail: one append-only Turn
// per logged utterance or tool event.
package turnlog

import (
	"context"
	"sync"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one append-only audit record. IsFinal distinguishes settled
// utterances from streaming partials.
type Turn struct {
	Role    Role      `json:"role"`
	Text    string    `json:"text"`
	IsFinal bool      `json:"isFinal"`
	At      time.Time `json:"at"`
}

// Store is an append-only sink for turns. Recent returns up to limit turns in
// chronological order, newest last; limit <= 0 means everything retained.
type Store interface {
	AddTurn(ctx context.Context, t Turn) error
	Recent(ctx context.Context, limit int) ([]Turn, error)
	Close() error
}

// MemoryStore keeps the newest maxEntries turns in memory. It is the default
// store and the one tests wire in.
type MemoryStore struct {
	mu         sync.Mutex
	turns      []Turn
	maxEntries int
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryStore{maxEntries: maxEntries}
}

func (s *MemoryStore) AddTurn(ctx context.Context, t Turn) error {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	if len(s.turns) > s.maxEntries {
		s.turns = s.turns[len(s.turns)-s.maxEntries:]
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.turns)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Turn, n)
	copy(out, s.turns[len(s.turns)-n:])
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
