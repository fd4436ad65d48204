// Package audit defines the case action trail: who decided what, when, and
// why. The model is transport-agnostic so stores and sinks can fan out.
package audit

import (
	"errors"
	"fmt"
	"time"
)

// Action kinds. DECISION rows are written by the pipeline itself; the rest
// are recorded on behalf of a human analyst.
const (
	KindApprove     = "APPROVE"
	KindOverride    = "OVERRIDE"
	KindRequestInfo = "REQUEST_INFO"
	KindEscalate    = "ESCALATE"
	KindDecision    = "DECISION"
)

// ErrReasonRequired is returned when an OVERRIDE arrives without a reason.
var ErrReasonRequired = errors.New("override requires a non-empty reason")

// Action is one row of the audit trail.
type Action struct {
	ID        int64                  `json:"id"`
	CaseID    string                 `json:"case_id"`
	AccountID string                 `json:"account_id"`
	Kind      string                 `json:"action"`
	Reason    string                 `json:"reason,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // e.g. the previous routed_path
}

// Validate rejects malformed actions before any write happens. An OVERRIDE
// without a reason is a declined request, never a silently-accepted row.
func Validate(a Action) error {
	if a.CaseID == "" {
		return errors.New("case_id is required")
	}
	if a.AccountID == "" {
		return errors.New("account_id is required")
	}
	switch a.Kind {
	case KindApprove, KindOverride, KindRequestInfo, KindEscalate, KindDecision:
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if a.Kind == KindOverride && a.Reason == "" {
		return ErrReasonRequired
	}
	return nil
}
