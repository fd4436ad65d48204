// Package router applies the non-overridable guardrails that bound how far
// an advisory recommendation is trusted. The routed path may be safer than
// the recommended one; it is never riskier, and every override is recorded.
package router

import (
	"fmt"

	"github.com/kadeyemi/casetrail/internal/advisory"
	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/risk"
)

// Decision is a validated recommendation plus routing metadata. The advisory
// fields pass through untouched; only routed_path, guardrail_notes, and
// needs_human_confirmation are added.
type Decision struct {
	advisory.Recommendation
	RoutedPath             string   `json:"routed_path"`
	GuardrailNotes         []string `json:"guardrail_notes"`
	NeedsHumanConfirmation bool     `json:"needs_human_confirmation"`
}

// Router is a total function over its input domain; no recommendation and
// band combination can make it fail.
type Router struct {
	conf config.GuardrailConf
}

// New creates a Router bound to the given guardrail tuning.
func New(conf config.GuardrailConf) *Router {
	return &Router{conf: conf}
}

// Route applies the guardrails in fixed order. Order matters: the high-risk
// rule is evaluated against the path value after the confidence floor has
// had its say, so the two rules can compound notes.
func (r *Router) Route(rec advisory.Recommendation, riskBand string) Decision {
	routed := rec.WorkflowPath
	notes := []string{}

	// Guardrail 1: low confidence always lands with a human. A note is only
	// added when the path actually changes.
	if rec.Confidence < r.conf.ConfidenceFloor {
		if routed != advisory.PathReview {
			notes = append(notes, fmt.Sprintf("confidence %.2f below floor %.2f; forcing REVIEW", rec.Confidence, r.conf.ConfidenceFloor))
		}
		routed = advisory.PathReview
	}

	// Guardrail 2: a HIGH-risk account is never left on passive monitoring.
	if riskBand == risk.BandHigh && routed == advisory.PathMonitor {
		notes = append(notes, "risk band is HIGH and path is MONITOR; forcing REVIEW")
		routed = advisory.PathReview
	}

	return Decision{
		Recommendation:         rec,
		RoutedPath:             routed,
		GuardrailNotes:         notes,
		NeedsHumanConfirmation: routed == advisory.PathEscalate,
	}
}
