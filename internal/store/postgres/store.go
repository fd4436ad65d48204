// Package postgres provides the durable store implementation backed by
// PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kadeyemi/casetrail/internal/audit"
	"github.com/kadeyemi/casetrail/internal/event"
	"github.com/kadeyemi/casetrail/internal/store"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// Store implements store.Store with a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool and fails fast if the database is unreachable.
func New(dbURL string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// InsertEvent persists an event. Duplicate detection is enforced by the
// unique constraint on idempotency_key, which is compatible with client
// retries and at-least-once delivery.
func (s *Store) InsertEvent(ctx context.Context, e event.Event, idempotencyKey string) (int64, bool, error) {
	if e.AccountID == "" || e.EventType == "" {
		return 0, false, store.ErrEmptyEvent
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, false, fmt.Errorf("marshal payload: %w", err)
	}

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO events (account_id, event_type, created_at, payload, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`, e.AccountID, e.EventType, e.CreatedAt.UTC(), payloadJSON, key).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("insert event: %w", err)
	}

	// Conflict: the key was seen before. Return the original row's id.
	err = s.pool.QueryRow(ctx, `
		SELECT id FROM events WHERE idempotency_key = $1
	`, idempotencyKey).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("look up duplicate event: %w", err)
	}
	return id, true, nil
}

// ListEvents returns the account's history ordered by (created_at, id).
func (s *Store) ListEvents(ctx context.Context, accountID string) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, event_type, created_at, payload
		FROM events
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.AccountID, &e.EventType, &e.CreatedAt, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload for event %d: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// RecordAction appends one audit row after re-validating it.
func (s *Store) RecordAction(ctx context.Context, a audit.Action) (int64, error) {
	if err := audit.Validate(a); err != nil {
		return 0, err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var extraJSON []byte
	if a.Extra != nil {
		var err error
		extraJSON, err = json.Marshal(a.Extra)
		if err != nil {
			return 0, fmt.Errorf("marshal extra: %w", err)
		}
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO case_actions (case_id, account_id, action, reason, created_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.CaseID, a.AccountID, a.Kind, a.Reason, a.CreatedAt.UTC(), extraJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record action: %w", err)
	}
	return id, nil
}

// ListActions returns the case's action trail in insertion order.
func (s *Store) ListActions(ctx context.Context, caseID string) ([]audit.Action, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, account_id, action, COALESCE(reason, ''), created_at, extra
		FROM case_actions
		WHERE case_id = $1
		ORDER BY id ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []audit.Action
	for rows.Next() {
		var a audit.Action
		var extraJSON []byte
		if err := rows.Scan(&a.ID, &a.CaseID, &a.AccountID, &a.Kind, &a.Reason, &a.CreatedAt, &extraJSON); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if len(extraJSON) > 0 {
			if err := json.Unmarshal(extraJSON, &a.Extra); err != nil {
				return nil, fmt.Errorf("unmarshal extra for action %d: %w", a.ID, err)
			}
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}

// Ping is used by the readiness endpoint to validate connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
