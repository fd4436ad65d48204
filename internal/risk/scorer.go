// Package risk turns a signal set into a deterministic, explainable score.
// Points come from a fixed weight table; the breakdown is returned alongside
// the total so an analyst can see exactly why the score is what it is.
package risk

import (
	"math"
	"sort"

	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/signal"
)

// Risk bands derived from the score partition.
const (
	BandLow    = "LOW"
	BandMedium = "MEDIUM"
	BandHigh   = "HIGH"
)

// Assessment is the full scoring output for one account. Recomputed on every
// request, never persisted.
type Assessment struct {
	AccountID      string         `json:"account_id"`
	RiskScore      int            `json:"risk_score"`
	RiskBand       string         `json:"risk_band"`
	Confidence     float64        `json:"confidence"`
	ScoreBreakdown map[string]int `json:"score_breakdown"`
	FiredSignals   []string       `json:"fired_signals"`
}

// Scorer converts signals to an Assessment using an immutable weight table.
type Scorer struct {
	conf config.RiskConf
}

// NewScorer creates a Scorer bound to the given tuning.
func NewScorer(conf config.RiskConf) *Scorer {
	return &Scorer{conf: conf}
}

// Assess is pure and total; no signal set can make it fail. Unrecognized
// signal names contribute the default weight so new upstream signal types
// degrade gracefully instead of crashing scoring.
func (s *Scorer) Assess(accountID string, signals []signal.Signal) Assessment {
	breakdown := make(map[string]int, len(signals))
	for _, sig := range signals {
		points, ok := s.conf.Weights[sig.Name]
		if !ok {
			points = s.conf.DefaultWeight
		}
		// Repeated signals of the same name keep raising that name's bucket.
		breakdown[sig.Name] += points
	}

	score := 0
	fired := make([]string, 0, len(breakdown))
	for name, points := range breakdown {
		score += points
		fired = append(fired, name)
	}
	sort.Strings(fired)

	return Assessment{
		AccountID:      accountID,
		RiskScore:      score,
		RiskBand:       s.band(score),
		Confidence:     s.confidence(score, len(fired)),
		ScoreBreakdown: breakdown,
		FiredSignals:   fired,
	}
}

func (s *Scorer) band(score int) string {
	if score <= s.conf.LowMax {
		return BandLow
	}
	if score <= s.conf.MediumMax {
		return BandMedium
	}
	return BandHigh
}

// confidence blends severity with breadth: 0.6 x min(score,100)/100 plus
// 0.4 x min(count,4)/4, clamped to [0,1] and rounded to two decimals. Zero
// fired signals force exactly 0.
func (s *Scorer) confidence(score, firedCount int) float64 {
	if firedCount == 0 {
		return 0.0
	}
	scoreComponent := math.Min(float64(score), 100) / 100
	countComponent := math.Min(float64(firedCount), 4) / 4
	c := 0.6*scoreComponent + 0.4*countComponent
	c = math.Max(0, math.Min(1, c))
	return math.Round(c*100) / 100
}
