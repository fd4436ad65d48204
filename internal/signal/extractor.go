package signal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/event"
)

// Extractor scans one account's event history and emits deduplicated signals.
// It holds no state between calls; the whole scan is a fold over the ordered
// events with an explicit accumulator, so identical inputs always produce
// identical output.
type Extractor struct {
	conf config.SignalConf
}

// NewExtractor creates an Extractor bound to the given tuning.
func NewExtractor(conf config.SignalConf) *Extractor {
	return &Extractor{conf: conf}
}

// scanState is the accumulator threaded through the event scan.
type scanState struct {
	seenDevices        map[string]struct{}
	seenCounterparties map[string]struct{}
	lastProfileChange  time.Time
	lastProfileEventID int64
	hasProfileChange   bool
}

// Extract returns the signals for events inside the lookback window measured
// from now. Input order does not matter; events are sorted by (created_at, id)
// before the scan. Malformed payloads never fail the scan, they just fire
// nothing for the affected field.
func (x *Extractor) Extract(events []event.Event, now time.Time) []Signal {
	cutoff := now.Add(-time.Duration(x.conf.LookbackDays) * 24 * time.Hour)

	window := make([]event.Event, 0, len(events))
	for _, e := range events {
		if !e.CreatedAt.Before(cutoff) {
			window = append(window, e)
		}
	}
	event.SortChronological(window)

	st := scanState{
		seenDevices:        make(map[string]struct{}),
		seenCounterparties: make(map[string]struct{}),
	}
	var signals []Signal

	for _, e := range window {
		switch e.EventType {
		case event.TypeDeviceLogin:
			signals = x.scanDeviceLogin(e, &st, signals)
		case event.TypeProfileChange:
			signals = x.scanProfileChange(e, &st, signals)
		case event.TypeTransactionPosted:
			signals = x.scanTransaction(e, &st, signals)
		}
	}

	return dedupe(signals)
}

func (x *Extractor) scanDeviceLogin(e event.Event, st *scanState, signals []Signal) []Signal {
	deviceID, ok := payloadString(e.Payload, "device_id")
	if !ok {
		return signals
	}
	if _, known := st.seenDevices[deviceID]; !known {
		signals = append(signals, Signal{
			Name:             NewDeviceLogin,
			WhyItFired:       fmt.Sprintf("login from device %q not seen in the last %d days", deviceID, x.conf.LookbackDays),
			EvidenceEventIDs: []int64{e.ID},
		})
	}
	// A device is novel exactly once per window, whether or not it fired.
	st.seenDevices[deviceID] = struct{}{}
	return signals
}

func (x *Extractor) scanProfileChange(e event.Event, st *scanState, signals []Signal) []Signal {
	signals = append(signals, Signal{
		Name:             ProfileChange,
		WhyItFired:       fmt.Sprintf("profile change detected (fields: %s)", changedFields(e.Payload)),
		EvidenceEventIDs: []int64{e.ID},
	})
	st.lastProfileChange = e.CreatedAt
	st.lastProfileEventID = e.ID
	st.hasProfileChange = true
	return signals
}

func (x *Extractor) scanTransaction(e event.Event, st *scanState, signals []Signal) []Signal {
	amount, amountOK := payloadNumber(e.Payload, "amount")
	recipient, recipientOK := payloadString(e.Payload, "counterparty")
	large := amountOK && amount >= x.conf.LargeTxnThreshold

	if large {
		signals = append(signals, Signal{
			Name:             LargeTransaction,
			WhyItFired:       fmt.Sprintf("transaction of %.2f at or above threshold %.2f", amount, x.conf.LargeTxnThreshold),
			EvidenceEventIDs: []int64{e.ID},
		})
	}

	if recipientOK {
		if _, known := st.seenCounterparties[recipient]; !known && large {
			signals = append(signals, Signal{
				Name:             NewPayeeLargeTransfer,
				WhyItFired:       fmt.Sprintf("first transfer to counterparty %q is %.2f, at or above threshold %.2f", recipient, amount, x.conf.LargeTxnThreshold),
				EvidenceEventIDs: []int64{e.ID},
			})
		}
		// The counterparty becomes known after its first transaction no matter
		// what fired.
		st.seenCounterparties[recipient] = struct{}{}
	}

	if st.hasProfileChange {
		windowStart := e.CreatedAt.Add(-time.Duration(x.conf.ProfileChangeWindowHours) * time.Hour)
		if !st.lastProfileChange.Before(windowStart) && !st.lastProfileChange.After(e.CreatedAt) {
			signals = append(signals, Signal{
				Name:             ProfileChangeAndTransfer24,
				WhyItFired:       fmt.Sprintf("transaction within %dh of a profile change", x.conf.ProfileChangeWindowHours),
				EvidenceEventIDs: []int64{st.lastProfileEventID, e.ID},
			})
		}
	}

	return signals
}

// dedupe removes signals whose (name, evidence) key was already emitted,
// preserving first-emission order.
func dedupe(signals []Signal) []Signal {
	seen := make(map[string]struct{}, len(signals))
	out := make([]Signal, 0, len(signals))
	for _, s := range signals {
		key := signalKey(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func signalKey(s Signal) string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, id := range s.EvidenceEventIDs {
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// payloadString reads a non-empty string field from an event payload.
func payloadString(payload map[string]interface{}, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	s, ok := payload[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// payloadNumber reads a numeric field, tolerating the types JSON decoding and
// hand-built payloads produce.
func payloadNumber(payload map[string]interface{}, key string) (float64, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// changedFields renders the profile_change payload's changed_fields list for
// the explanation string. Malformed entries degrade to an empty list.
func changedFields(payload map[string]interface{}) string {
	if payload == nil {
		return "[]"
	}
	raw, ok := payload["changed_fields"].([]interface{})
	if !ok {
		return "[]"
	}
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			fields = append(fields, s)
		}
	}
	return "[" + strings.Join(fields, ", ") + "]"
}
