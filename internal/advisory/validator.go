package advisory

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

const schemaName = "advisory.schema.json"

// Validator checks raw reasoning output with both a typed decoder and a JSON
// schema. Either rejecting the payload triggers the fail-safe substitute;
// the caller never sees an error.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded recommendation schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaName, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add advisory schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaName)
	if err != nil {
		return nil, fmt.Errorf("compile advisory schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate turns raw advisory bytes into a guaranteed-valid recommendation.
// offered is the citation list that was actually presented to the reasoning
// component; on fail-safe at most the first offered citation is kept.
//
// An empty payload is treated the same as unparseable output. It doubles as
// the path for a caller that gave up waiting on the reasoning call.
func (v *Validator) Validate(raw []byte, offered []string) Result {
	if len(bytes.TrimSpace(raw)) == 0 {
		return v.failSafe("advisory payload was empty or absent", offered)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return v.failSafe("advisory output was not valid JSON", offered)
	}
	if err := v.schema.Validate(doc); err != nil {
		return v.failSafe("advisory output did not match the required schema", offered)
	}

	var rec Recommendation
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return v.failSafe("advisory output did not decode into the recommendation shape", offered)
	}

	normalize(&rec)
	return Result{Recommendation: rec}
}

// failSafe is the fixed substitute: force REVIEW at zero confidence and say
// why, so downstream routing stays safe and the audit trail stays honest.
func (v *Validator) failSafe(reason string, offered []string) Result {
	citations := []string{}
	if len(offered) > 0 {
		citations = offered[:1]
	}
	rec := Recommendation{
		NarrativeSummary: "Advisory output could not be trusted. Failing safe to human review.",
		KnownFacts:       []string{},
		Unknowns:         []string{reason},
		WorkflowPath:     PathReview,
		WhyThisPath:      []string{"Fail-safe triggered: " + reason},
		Confidence:       0.0,
		EvidenceEventIDs: []int64{},
		PolicyCitations:  citations,
		AIStop:           BoundaryStatement,
	}
	return Result{Recommendation: rec, FailSafe: true, Reason: reason}
}

// normalize guarantees the invariants the schema cannot express: nil slices
// render as [] and the boundary statement is verbatim-identical everywhere
// rather than whatever phrasing the reasoning component echoed back.
func normalize(rec *Recommendation) {
	if rec.KnownFacts == nil {
		rec.KnownFacts = []string{}
	}
	if rec.Unknowns == nil {
		rec.Unknowns = []string{}
	}
	if rec.WhyThisPath == nil {
		rec.WhyThisPath = []string{}
	}
	if rec.EvidenceEventIDs == nil {
		rec.EvidenceEventIDs = []int64{}
	}
	if rec.PolicyCitations == nil {
		rec.PolicyCitations = []string{}
	}
	rec.AIStop = BoundaryStatement
}
