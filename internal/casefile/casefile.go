// Package casefile assembles investigation-ready cases and runs the full
// decision pipeline over them: signals, risk, advisory validation, guardrail
// routing, and SLA assignment.
package casefile

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kadeyemi/casetrail/internal/advisory"
	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/event"
	"github.com/kadeyemi/casetrail/internal/risk"
	"github.com/kadeyemi/casetrail/internal/router"
	"github.com/kadeyemi/casetrail/internal/signal"
	"github.com/kadeyemi/casetrail/internal/sla"
)

// Case replaces point-in-time alerts with one cohesive object: the event
// timeline, the signals derived from it, and the risk assessment.
type Case struct {
	CaseID    string          `json:"case_id"`
	AccountID string          `json:"account_id"`
	CreatedAt time.Time       `json:"created_at"`
	Timeline  []event.Event   `json:"timeline"`
	Signals   []signal.Signal `json:"signals"`
	Risk      risk.Assessment `json:"risk_assessment"`
}

// DecisionRecord is the final auditable output of one pipeline run.
type DecisionRecord struct {
	Case             Case            `json:"case"`
	Decision         router.Decision `json:"decision"`
	SLA              sla.Status      `json:"sla"`
	AdvisoryFailSafe bool            `json:"advisory_failsafe"`
	FailSafeReason   string          `json:"failsafe_reason,omitempty"`
}

// Engine runs the pipeline. The tuning config is swapped atomically on
// hot-reload; everything else is immutable, so concurrent runs for different
// accounts need no coordination.
type Engine struct {
	cfg       atomic.Pointer[config.Pipeline]
	validator *advisory.Validator
	clock     func() time.Time
}

// New creates an Engine. clock defaults to time.Now when nil; tests inject
// a fixed clock for deterministic runs.
func New(cfg *config.Pipeline, validator *advisory.Validator, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	e := &Engine{validator: validator, clock: clock}
	e.cfg.Store(cfg)
	return e
}

// SwapConfig atomically replaces the pipeline tuning (used on hot-reload).
func (e *Engine) SwapConfig(cfg *config.Pipeline) {
	e.cfg.Store(cfg)
}

// Config returns the tuning currently in effect.
func (e *Engine) Config() *config.Pipeline {
	return e.cfg.Load()
}

// BuildCase extracts signals and scores risk over the supplied history.
// An empty history is a legitimate state: zero signals, zero score, LOW band.
func (e *Engine) BuildCase(accountID string, events []event.Event) Case {
	cfg := e.cfg.Load()
	now := e.clock()

	timeline := make([]event.Event, len(events))
	copy(timeline, events)
	event.SortChronological(timeline)

	signals := signal.NewExtractor(cfg.Signals).Extract(timeline, now)
	assessment := risk.NewScorer(cfg.Risk).Assess(accountID, signals)

	return Case{
		CaseID:    fmt.Sprintf("CASE-%s-%d", accountID, now.Unix()),
		AccountID: accountID,
		CreatedAt: now.UTC(),
		Timeline:  timeline,
		Signals:   signals,
		Risk:      assessment,
	}
}

// Decide runs the full pipeline: case assembly, advisory validation,
// guardrail routing, SLA assignment. rawAdvisory is the reasoning
// component's output as received, untrusted and possibly malformed or empty;
// offered is the citation list that was presented to it.
func (e *Engine) Decide(accountID string, events []event.Event, rawAdvisory []byte, offered []string) DecisionRecord {
	cfg := e.cfg.Load()
	c := e.BuildCase(accountID, events)

	res := e.validator.Validate(rawAdvisory, offered)
	decision := router.New(cfg.Guardrails).Route(res.Recommendation, c.Risk.RiskBand)
	status := sla.New(cfg.SLA).Assign(c.CreatedAt, decision.RoutedPath, e.clock())

	return DecisionRecord{
		Case:             c,
		Decision:         decision,
		SLA:              status,
		AdvisoryFailSafe: res.FailSafe,
		FailSafeReason:   res.Reason,
	}
}
