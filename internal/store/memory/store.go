// Package memory provides an in-memory store implementation, suitable for
// tests and single-node development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kadeyemi/casetrail/internal/audit"
	"github.com/kadeyemi/casetrail/internal/event"
	"github.com/kadeyemi/casetrail/internal/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu           sync.RWMutex
	nextEventID  int64
	nextActionID int64
	events       map[string][]event.Event  // accountID -> events in insertion order
	idempotency  map[string]int64          // idempotency key -> event id
	actions      map[string][]audit.Action // caseID -> actions in insertion order
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		events:      make(map[string][]event.Event),
		idempotency: make(map[string]int64),
		actions:     make(map[string][]audit.Action),
	}
}

// InsertEvent assigns the next monotonic id and appends the event.
func (s *Store) InsertEvent(ctx context.Context, e event.Event, idempotencyKey string) (int64, bool, error) {
	if e.AccountID == "" || e.EventType == "" {
		return 0, false, store.ErrEmptyEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" {
		if id, exists := s.idempotency[idempotencyKey]; exists {
			return id, true, nil
		}
	}

	s.nextEventID++
	e.ID = s.nextEventID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.events[e.AccountID] = append(s.events[e.AccountID], e)
	if idempotencyKey != "" {
		s.idempotency[idempotencyKey] = e.ID
	}
	return e.ID, false, nil
}

// ListEvents returns a sorted copy of the account's history.
func (s *Store) ListEvents(ctx context.Context, accountID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.events[accountID]
	out := make([]event.Event, len(src))
	copy(out, src)
	event.SortChronological(out)
	return out, nil
}

// RecordAction validates and appends one audit row.
func (s *Store) RecordAction(ctx context.Context, a audit.Action) (int64, error) {
	if err := audit.Validate(a); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextActionID++
	a.ID = s.nextActionID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.actions[a.CaseID] = append(s.actions[a.CaseID], a)
	return a.ID, nil
}

// ListActions returns a copy of the case's action trail.
func (s *Store) ListActions(ctx context.Context, caseID string) ([]audit.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.actions[caseID]
	out := make([]audit.Action, len(src))
	copy(out, src)
	return out, nil
}

// Ping always succeeds; memory is always reachable.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}
