package config

// Pipeline is the top-level YAML structure. Every tunable the decision
// pipeline consumes lives here so tests and environments can vary them
// without touching process-global state.
type Pipeline struct {
	Version    string        `yaml:"version"`
	Ingest     IngestConf    `yaml:"ingest"`
	Signals    SignalConf    `yaml:"signals"`
	Risk       RiskConf      `yaml:"risk"`
	Guardrails GuardrailConf `yaml:"guardrails"`
	SLA        SLAConf       `yaml:"sla"`
}

// IngestConf holds tunable concurrency settings for the ingestion pool.
type IngestConf struct {
	Workers         int `yaml:"workers"`
	QueueDepth      int `yaml:"queue_depth"`
	SubmitTimeoutMs int `yaml:"submit_timeout_ms"`
}

// SignalConf bounds the signal extraction scan.
type SignalConf struct {
	LookbackDays             int     `yaml:"lookback_days"`
	LargeTxnThreshold        float64 `yaml:"large_txn_threshold"` // account base currency
	ProfileChangeWindowHours int     `yaml:"profile_change_window_hours"`
}

// RiskConf is the weight table and band partition for scoring.
type RiskConf struct {
	Weights       map[string]int `yaml:"weights"`
	DefaultWeight int            `yaml:"default_weight"` // unrecognized signal names
	LowMax        int            `yaml:"low_max"`        // score <= LowMax -> LOW
	MediumMax     int            `yaml:"medium_max"`     // score <= MediumMax -> MEDIUM, else HIGH
}

// GuardrailConf bounds how far an advisory recommendation is trusted.
type GuardrailConf struct {
	ConfidenceFloor float64 `yaml:"confidence_floor"`
}

// SLAConf maps routed paths to allotted hours.
type SLAConf struct {
	HoursByPath  map[string]int `yaml:"hours_by_path"`
	DefaultHours int            `yaml:"default_hours"`
	DueSoonHours int            `yaml:"due_soon_hours"`
}
