package oauthsvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrInvalidState = errors.New("sign-in request expired or is invalid")

	// StateTTL bounds the time between leaving for the provider and coming back.
	StateTTL = 10 * time.Minute

	nowFunc = time.Now // mockable
)

type (
	// State is what we remember about a sign-in while the person is at the provider.
	State struct {
		Provider string `json:"provider"`
		ReturnTo string `json:"return_to"`
	}

	// StateStore keeps States for StateTTL. Take consumes a key: it works only once.
	StateStore interface {
		Save(ctx context.Context, st State) (key string, err error)
		Take(ctx context.Context, key string) (State, error)
	}

	memoryEntry struct {
		state     State
		expiresAt time.Time
	}

	MemoryStateStore struct {
		mu      sync.Mutex
		entries map[string]memoryEntry
	}
)

var _ StateStore = (*MemoryStateStore)(nil)

// NewStateKey returns an unguessable state parameter.
func NewStateKey() string {
	return uuid.NewString()
}

// NewMemoryStateStore is meant for a single process (tests, local runs).
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStateStore) Save(_ context.Context, st State) (string, error) {
	key := NewStateKey()
	now := nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryEntry{state: st, expiresAt: now.Add(StateTTL)}
	return key, nil
}

func (s *MemoryStateStore) Take(_ context.Context, key string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return State{}, ErrInvalidState
	}
	delete(s.entries, key)
	if nowFunc().After(e.expiresAt) {
		return State{}, ErrInvalidState
	}
	return e.state, nil
}
