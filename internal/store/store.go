// Package store defines the persistence boundary for events and the audit
// trail. Implementations must be safe for concurrent use.
package store

import (
	"context"
	"errors"

	"github.com/kadeyemi/casetrail/internal/audit"
	"github.com/kadeyemi/casetrail/internal/event"
)

// ErrEmptyEvent indicates an insert with missing required fields.
var ErrEmptyEvent = errors.New("account_id and event_type are required")

// EventStore persists and reads back account event histories.
type EventStore interface {
	// InsertEvent persists one event and returns its assigned id. IDs are
	// monotonically increasing. A repeated idempotencyKey returns the
	// original id with duplicate=true instead of writing a second row; an
	// empty key disables deduplication for that insert.
	InsertEvent(ctx context.Context, e event.Event, idempotencyKey string) (id int64, duplicate bool, err error)

	// ListEvents returns all events for an account ordered by created_at
	// ascending with id as tie-break. A missing account yields an empty
	// slice, not an error.
	ListEvents(ctx context.Context, accountID string) ([]event.Event, error)
}

// AuditStore persists the case action trail.
type AuditStore interface {
	// RecordAction appends one action and returns its assigned id. Callers
	// are expected to have run audit.Validate first; stores may re-check.
	RecordAction(ctx context.Context, a audit.Action) (int64, error)

	// ListActions returns all actions for a case in insertion order.
	ListActions(ctx context.Context, caseID string) ([]audit.Action, error)
}

// Store combines both persistence concerns plus health checking, which is
// what the server actually wires.
type Store interface {
	EventStore
	AuditStore

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases held resources.
	Close()
}
