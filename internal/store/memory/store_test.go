package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kadeyemi/casetrail/internal/audit"
	"github.com/kadeyemi/casetrail/internal/event"
)

func TestInsertEventAssignsMonotonicIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, dup, err := s.InsertEvent(ctx, event.Event{AccountID: "ACC1", EventType: "device_login"}, "")
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if dup {
			t.Fatal("unexpected duplicate")
		}
		if id <= last {
			t.Fatalf("id %d not monotonically increasing after %d", id, last)
		}
		last = id
	}
}

func TestInsertEventIdempotency(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, dup, err := s.InsertEvent(ctx, event.Event{AccountID: "ACC1", EventType: "device_login"}, "key-1")
	if err != nil || dup {
		t.Fatalf("first insert: id=%d dup=%v err=%v", first, dup, err)
	}
	second, dup, err := s.InsertEvent(ctx, event.Event{AccountID: "ACC1", EventType: "device_login"}, "key-1")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if !dup {
		t.Fatal("expected duplicate on repeated idempotency key")
	}
	if second != first {
		t.Fatalf("duplicate returned id %d, want original %d", second, first)
	}
}

func TestInsertEventRequiredFields(t *testing.T) {
	s := New()
	if _, _, err := s.InsertEvent(context.Background(), event.Event{AccountID: "ACC1"}, ""); err == nil {
		t.Fatal("expected error for missing event_type")
	}
}

func TestListEventsOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of chronological order.
	for _, at := range []time.Time{base.Add(2 * time.Hour), base, base.Add(time.Hour)} {
		if _, _, err := s.InsertEvent(ctx, event.Event{AccountID: "ACC1", EventType: "x", CreatedAt: at}, ""); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := s.ListEvents(ctx, "ACC1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Fatalf("events not in ascending order: %v", events)
		}
	}
}

func TestListEventsMissingAccount(t *testing.T) {
	s := New()
	events, err := s.ListEvents(context.Background(), "NOBODY")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events for an unknown account, want 0", len(events))
	}
}

func TestRecordActionValidates(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.RecordAction(ctx, audit.Action{CaseID: "C1", AccountID: "ACC1", Kind: audit.KindOverride})
	if err == nil {
		t.Fatal("override without reason must be rejected before any write")
	}
	actions, _ := s.ListActions(ctx, "C1")
	if len(actions) != 0 {
		t.Fatalf("rejected action was persisted: %v", actions)
	}

	id, err := s.RecordAction(ctx, audit.Action{CaseID: "C1", AccountID: "ACC1", Kind: audit.KindOverride, Reason: "bad routing"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned action id")
	}
	actions, _ = s.ListActions(ctx, "C1")
	if len(actions) != 1 || actions[0].Reason != "bad routing" {
		t.Fatalf("unexpected trail: %v", actions)
	}
}
