package event

import (
	"sort"
	"time"
)

// Event is a single immutable operational event for one account.
// IDs are assigned monotonically by the store; the core only reads events.
type Event struct {
	ID        int64                  `json:"id"`
	AccountID string                 `json:"account_id"`
	EventType string                 `json:"event_type"` // "device_login", "transaction_posted", etc.
	CreatedAt time.Time              `json:"created_at"`
	Payload   map[string]interface{} `json:"payload"` // full raw event payload, kept for traceability
}

// Event types the signal extractor dispatches on. Anything else passes through silently.
const (
	TypeDeviceLogin       = "device_login"
	TypeProfileChange     = "profile_change"
	TypeTransactionPosted = "transaction_posted"
)

// SortChronological orders events by created_at ascending, with id as the
// tie-break so runs over identical histories are byte-identical.
func SortChronological(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}
