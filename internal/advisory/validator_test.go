package advisory

import (
	"encoding/json"
	"testing"
)

func mustValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func validPayload(t *testing.T, mutate func(map[string]interface{})) []byte {
	t.Helper()
	doc := map[string]interface{}{
		"narrative_summary":  "Large transfer shortly after a profile change.",
		"known_facts":        []interface{}{"transfer of 5000 to a new counterparty"},
		"unknowns":           []interface{}{"whether the customer initiated the change"},
		"workflow_path":      "ESCALATE",
		"why_this_path":      []interface{}{"correlated change-then-transfer pattern"},
		"confidence":         0.9,
		"evidence_event_ids": []interface{}{1, 3},
		"policy_citations":   []interface{}{"aml_policy.md#chunk_2"},
		"ai_stop":            "AI cannot freeze accounts.",
	}
	if mutate != nil {
		mutate(doc)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestValidateAccepts(t *testing.T) {
	v := mustValidator(t)
	res := v.Validate(validPayload(t, nil), []string{"aml_policy.md#chunk_2"})
	if res.FailSafe {
		t.Fatalf("expected valid, got fail-safe: %s", res.Reason)
	}
	rec := res.Recommendation
	if rec.WorkflowPath != PathEscalate {
		t.Errorf("workflow_path = %s, want %s", rec.WorkflowPath, PathEscalate)
	}
	if rec.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", rec.Confidence)
	}
	// The boundary statement is stamped even on valid output.
	if rec.AIStop != BoundaryStatement {
		t.Errorf("ai_stop = %q, want the canonical boundary statement", rec.AIStop)
	}
}

func TestValidateFailSafe(t *testing.T) {
	v := mustValidator(t)
	offered := []string{"aml_policy.md#chunk_0", "kyc_policy.md#chunk_4"}

	cases := []struct {
		name string
		raw  []byte
	}{
		{"empty payload", nil},
		{"whitespace only", []byte("   \n")},
		{"not JSON", []byte("I think this account should be reviewed because...")},
		{"truncated JSON", []byte(`{"narrative_summary": "x", "workflow`)},
		{"missing field", validPayload(t, func(d map[string]interface{}) { delete(d, "ai_stop") })},
		{"extra field", validPayload(t, func(d map[string]interface{}) { d["verdict"] = "GUILTY" })},
		{"path outside closed set", validPayload(t, func(d map[string]interface{}) { d["workflow_path"] = "FREEZE_ACCOUNT" })},
		{"confidence above one", validPayload(t, func(d map[string]interface{}) { d["confidence"] = 1.2 })},
		{"confidence negative", validPayload(t, func(d map[string]interface{}) { d["confidence"] = -0.1 })},
		{"mistyped confidence", validPayload(t, func(d map[string]interface{}) { d["confidence"] = "high" })},
		{"empty ai_stop", validPayload(t, func(d map[string]interface{}) { d["ai_stop"] = "" })},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := v.Validate(tc.raw, offered)
			if !res.FailSafe {
				t.Fatal("expected fail-safe substitution")
			}
			rec := res.Recommendation
			if rec.WorkflowPath != PathReview {
				t.Errorf("workflow_path = %s, want REVIEW", rec.WorkflowPath)
			}
			if rec.Confidence != 0.0 {
				t.Errorf("confidence = %v, want 0.0", rec.Confidence)
			}
			if rec.AIStop == "" {
				t.Error("ai_stop must never be empty")
			}
			if len(rec.Unknowns) == 0 {
				t.Error("fail-safe must describe the failure in unknowns")
			}
			// At most the first offered citation survives.
			if len(rec.PolicyCitations) != 1 || rec.PolicyCitations[0] != offered[0] {
				t.Errorf("policy_citations = %v, want [%s]", rec.PolicyCitations, offered[0])
			}
		})
	}
}

func TestValidateFailSafeNoCitations(t *testing.T) {
	v := mustValidator(t)
	res := v.Validate([]byte("not json"), nil)
	if !res.FailSafe {
		t.Fatal("expected fail-safe substitution")
	}
	if len(res.Recommendation.PolicyCitations) != 0 {
		t.Fatalf("policy_citations = %v, want empty", res.Recommendation.PolicyCitations)
	}
}
