package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Negative weights or thresholds
//   - A broken band partition (low_max must sit below medium_max)
//   - Guardrail floor outside [0,1]
func Validate(cfg *Pipeline) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Ingest.Workers < 1 {
		errs = append(errs, "ingest.workers must be >= 1")
	}
	if cfg.Ingest.QueueDepth < 1 {
		errs = append(errs, "ingest.queue_depth must be >= 1")
	}

	if cfg.Signals.LookbackDays < 1 {
		errs = append(errs, "signals.lookback_days must be >= 1")
	}
	if cfg.Signals.LargeTxnThreshold <= 0 {
		errs = append(errs, "signals.large_txn_threshold must be positive")
	}
	if cfg.Signals.ProfileChangeWindowHours < 1 {
		errs = append(errs, "signals.profile_change_window_hours must be >= 1")
	}

	for name, w := range cfg.Risk.Weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("risk.weights[%s]: weight must be non-negative", name))
		}
	}
	if cfg.Risk.DefaultWeight < 0 {
		errs = append(errs, "risk.default_weight must be non-negative")
	}
	if cfg.Risk.LowMax < 0 {
		errs = append(errs, "risk.low_max must be non-negative")
	}
	if cfg.Risk.LowMax >= cfg.Risk.MediumMax {
		errs = append(errs, fmt.Sprintf("risk.low_max (%d) must be below risk.medium_max (%d)", cfg.Risk.LowMax, cfg.Risk.MediumMax))
	}

	if cfg.Guardrails.ConfidenceFloor < 0 || cfg.Guardrails.ConfidenceFloor > 1 {
		errs = append(errs, fmt.Sprintf("guardrails.confidence_floor (%v) must be in [0,1]", cfg.Guardrails.ConfidenceFloor))
	}

	for path, hours := range cfg.SLA.HoursByPath {
		if hours < 1 {
			errs = append(errs, fmt.Sprintf("sla.hours_by_path[%s]: hours must be >= 1", path))
		}
	}
	if cfg.SLA.DefaultHours < 1 {
		errs = append(errs, "sla.default_hours must be >= 1")
	}
	if cfg.SLA.DueSoonHours < 0 {
		errs = append(errs, "sla.due_soon_hours must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
