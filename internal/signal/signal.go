// Package signal converts raw account events into discrete, explainable
// signals. Every signal cites the event ids it was derived from so a human
// can verify it against the timeline.
package signal

// Closed vocabulary of signal names. The risk scorer tolerates names outside
// this set (new extractors may run ahead of scoring config), but the
// extractor only ever emits these.
const (
	NewDeviceLogin             = "NEW_DEVICE_LOGIN"
	ProfileChange              = "PROFILE_CHANGE"
	LargeTransaction           = "LARGE_TRANSACTION"
	NewPayeeLargeTransfer      = "NEW_PAYEE_LARGE_TRANSFER"
	ProfileChangeAndTransfer24 = "PROFILE_CHANGE_AND_TRANSFER_24H"
)

// Signal is a single evidence-backed observation. Immutable after creation.
type Signal struct {
	Name             string  `json:"signal_name"`
	WhyItFired       string  `json:"why_it_fired"`
	EvidenceEventIDs []int64 `json:"evidence_event_ids"`
}
