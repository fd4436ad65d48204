// Package advisory guards the boundary with the external reasoning
// component. Whatever bytes that component returns, this package always
// hands downstream a recommendation that satisfies the schema exactly.
package advisory

// Workflow paths the advisory component may propose and the router may
// route to. This set is closed; anything else is a validation failure.
const (
	PathMonitor     = "MONITOR"
	PathRequestInfo = "REQUEST_INFO"
	PathReview      = "REVIEW"
	PathEscalate    = "ESCALATE"
)

// BoundaryStatement is the standing safety disclosure carried on every
// recommendation, valid or substituted. It is not an error message.
const BoundaryStatement = "This component cannot freeze or restrict accounts or file regulatory reports; a human must decide enforcement."

// Recommendation is the validated shape of the reasoning component's output.
type Recommendation struct {
	NarrativeSummary string   `json:"narrative_summary"`
	KnownFacts       []string `json:"known_facts"`
	Unknowns         []string `json:"unknowns"`
	WorkflowPath     string   `json:"workflow_path"`
	WhyThisPath      []string `json:"why_this_path"`
	Confidence       float64  `json:"confidence"`
	EvidenceEventIDs []int64  `json:"evidence_event_ids"`
	PolicyCitations  []string `json:"policy_citations"`
	AIStop           string   `json:"ai_stop"`
}

// Result tags a recommendation with how it was obtained. FailSafe true means
// the raw payload could not be trusted and the fixed substitute was used;
// Reason then describes the failure.
type Result struct {
	Recommendation Recommendation
	FailSafe       bool
	Reason         string
}
