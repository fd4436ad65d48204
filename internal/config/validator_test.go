package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Pipeline)
		match  string
	}{
		{
			name:   "missing version",
			mutate: func(c *Pipeline) { c.Version = "" },
			match:  "version",
		},
		{
			name:   "negative weight",
			mutate: func(c *Pipeline) { c.Risk.Weights["NEW_DEVICE_LOGIN"] = -1 },
			match:  "non-negative",
		},
		{
			name:   "inverted band partition",
			mutate: func(c *Pipeline) { c.Risk.LowMax = 80 },
			match:  "low_max",
		},
		{
			name:   "floor above one",
			mutate: func(c *Pipeline) { c.Guardrails.ConfidenceFloor = 1.5 },
			match:  "confidence_floor",
		},
		{
			name:   "zero sla hours",
			mutate: func(c *Pipeline) { c.SLA.HoursByPath["REVIEW"] = 0 },
			match:  "hours",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.match) {
				t.Fatalf("error %q does not mention %q", err, tc.match)
			}
		})
	}
}
