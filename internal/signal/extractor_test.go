package signal

import (
	"reflect"
	"testing"
	"time"

	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/event"
)

var testConf = config.SignalConf{
	LookbackDays:             30,
	LargeTxnThreshold:        3000,
	ProfileChangeWindowHours: 24,
}

var now = time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

func ev(id int64, eventType string, at time.Time, payload map[string]interface{}) event.Event {
	return event.Event{ID: id, AccountID: "ACC1", EventType: eventType, CreatedAt: at, Payload: payload}
}

func names(signals []Signal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Name)
	}
	return out
}

func TestExtract(t *testing.T) {
	t0 := now.Add(-48 * time.Hour)
	t1 := now.Add(-24 * time.Hour)
	t2 := now.Add(-1 * time.Hour)

	cases := []struct {
		name   string
		events []event.Event
		want   []string
	}{
		{
			name: "new device fires once per window",
			events: []event.Event{
				ev(1, event.TypeDeviceLogin, t0, map[string]interface{}{"device_id": "D1"}),
				ev(2, event.TypeDeviceLogin, t1, map[string]interface{}{"device_id": "D1"}),
			},
			want: []string{NewDeviceLogin},
		},
		{
			name: "second distinct device fires again",
			events: []event.Event{
				ev(1, event.TypeDeviceLogin, t0, map[string]interface{}{"device_id": "D1"}),
				ev(2, event.TypeDeviceLogin, t1, map[string]interface{}{"device_id": "D2"}),
			},
			want: []string{NewDeviceLogin, NewDeviceLogin},
		},
		{
			name: "device login without device_id fires nothing",
			events: []event.Event{
				ev(1, event.TypeDeviceLogin, t0, map[string]interface{}{}),
				ev(2, event.TypeDeviceLogin, t1, nil),
			},
			want: []string{},
		},
		{
			name: "profile change always fires",
			events: []event.Event{
				ev(1, event.TypeProfileChange, t0, map[string]interface{}{"changed_fields": []interface{}{"email"}}),
				ev(2, event.TypeProfileChange, t1, nil),
			},
			want: []string{ProfileChange, ProfileChange},
		},
		{
			name: "large transaction at threshold",
			events: []event.Event{
				ev(1, event.TypeTransactionPosted, t1, map[string]interface{}{"amount": float64(3000)}),
			},
			want: []string{LargeTransaction},
		},
		{
			name: "below threshold fires nothing",
			events: []event.Event{
				ev(1, event.TypeTransactionPosted, t1, map[string]interface{}{"amount": 2999.99}),
			},
			want: []string{},
		},
		{
			name: "non-numeric amount degrades to no signal",
			events: []event.Event{
				ev(1, event.TypeTransactionPosted, t1, map[string]interface{}{"amount": "lots"}),
			},
			want: []string{},
		},
		{
			name: "new payee large transfer",
			events: []event.Event{
				ev(1, event.TypeTransactionPosted, t1, map[string]interface{}{"amount": float64(5000), "counterparty": "BOB"}),
			},
			want: []string{LargeTransaction, NewPayeeLargeTransfer},
		},
		{
			name: "known payee does not refire even when large",
			events: []event.Event{
				ev(1, event.TypeTransactionPosted, t0, map[string]interface{}{"amount": float64(10), "counterparty": "BOB"}),
				ev(2, event.TypeTransactionPosted, t1, map[string]interface{}{"amount": float64(5000), "counterparty": "BOB"}),
			},
			want: []string{LargeTransaction},
		},
		{
			name: "profile change then transfer within window",
			events: []event.Event{
				ev(1, event.TypeProfileChange, t1, nil),
				ev(2, event.TypeTransactionPosted, t1.Add(2*time.Hour), map[string]interface{}{"amount": float64(10)}),
			},
			want: []string{ProfileChange, ProfileChangeAndTransfer24},
		},
		{
			name: "profile change too old for correlation",
			events: []event.Event{
				ev(1, event.TypeProfileChange, t0, nil),
				ev(2, event.TypeTransactionPosted, t0.Add(25*time.Hour), map[string]interface{}{"amount": float64(10)}),
			},
			want: []string{ProfileChange},
		},
		{
			name: "unknown event type ignored",
			events: []event.Event{
				ev(1, "password_reset", t1, map[string]interface{}{"device_id": "D1"}),
			},
			want: []string{},
		},
		{
			name: "events outside lookback window excluded",
			events: []event.Event{
				ev(1, event.TypeDeviceLogin, now.Add(-31*24*time.Hour), map[string]interface{}{"device_id": "D1"}),
				ev(2, event.TypeDeviceLogin, t2, map[string]interface{}{"device_id": "D1"}),
			},
			want: []string{NewDeviceLogin},
		},
	}

	x := NewExtractor(testConf)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := names(x.Extract(tc.events, now))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("signals = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractCorrelationEvidence(t *testing.T) {
	x := NewExtractor(testConf)
	t1 := now.Add(-24 * time.Hour)
	events := []event.Event{
		ev(7, event.TypeProfileChange, t1, nil),
		ev(9, event.TypeTransactionPosted, t1.Add(time.Hour), map[string]interface{}{"amount": float64(10)}),
	}
	signals := x.Extract(events, now)
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	correlated := signals[1]
	if correlated.Name != ProfileChangeAndTransfer24 {
		t.Fatalf("second signal = %s, want %s", correlated.Name, ProfileChangeAndTransfer24)
	}
	if want := []int64{7, 9}; !reflect.DeepEqual(correlated.EvidenceEventIDs, want) {
		t.Fatalf("evidence = %v, want %v", correlated.EvidenceEventIDs, want)
	}
}

func TestExtractEvidenceNeverEmpty(t *testing.T) {
	x := NewExtractor(testConf)
	events := []event.Event{
		ev(1, event.TypeDeviceLogin, now.Add(-time.Hour), map[string]interface{}{"device_id": "D1"}),
		ev(2, event.TypeProfileChange, now.Add(-time.Hour), nil),
		ev(3, event.TypeTransactionPosted, now.Add(-time.Minute), map[string]interface{}{"amount": float64(9000), "counterparty": "EVE"}),
	}
	for _, s := range x.Extract(events, now) {
		if len(s.EvidenceEventIDs) == 0 {
			t.Fatalf("signal %s has no evidence", s.Name)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	x := NewExtractor(testConf)
	events := []event.Event{
		ev(1, event.TypeProfileChange, now.Add(-3*time.Hour), nil),
		ev(2, event.TypeTransactionPosted, now.Add(-2*time.Hour), map[string]interface{}{"amount": float64(4000), "counterparty": "EVE"}),
		ev(3, event.TypeDeviceLogin, now.Add(-time.Hour), map[string]interface{}{"device_id": "D1"}),
	}
	first := x.Extract(events, now)
	second := x.Extract(events, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestExtractMonotonicEvidence(t *testing.T) {
	x := NewExtractor(testConf)
	history := []event.Event{
		ev(1, event.TypeDeviceLogin, now.Add(-3*time.Hour), map[string]interface{}{"device_id": "D1"}),
		ev(2, event.TypeProfileChange, now.Add(-2*time.Hour), nil),
	}
	before := x.Extract(history, now)

	extended := append(append([]event.Event{}, history...),
		ev(3, event.TypeTransactionPosted, now.Add(-time.Hour), map[string]interface{}{"amount": float64(5000)}))
	after := x.Extract(extended, now)

	keys := make(map[string]struct{})
	for _, s := range after {
		keys[signalKey(s)] = struct{}{}
	}
	for _, s := range before {
		if _, ok := keys[signalKey(s)]; !ok {
			t.Fatalf("signal %v disappeared after appending a later event", s)
		}
	}
}
