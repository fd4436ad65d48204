// Package sla assigns deadlines to routed paths and reports live status.
// Status is computed fresh against the caller's now on every read; a cached
// ON_TRACK would silently rot into BREACHED.
package sla

import (
	"time"

	"github.com/kadeyemi/casetrail/internal/advisory"
	"github.com/kadeyemi/casetrail/internal/config"
)

// SLA states.
const (
	StateNoSLA    = "NO_SLA"
	StateOnTrack  = "ON_TRACK"
	StateDueSoon  = "DUE_SOON"
	StateBreached = "BREACHED"
)

// Status is the deadline and its live state for one routed case.
type Status struct {
	DueAt *time.Time `json:"sla_due_at"`
	State string     `json:"sla_status"`
}

// Assignor looks up allotted durations by routed path.
type Assignor struct {
	conf config.SLAConf
}

// New creates an Assignor bound to the given tuning.
func New(conf config.SLAConf) *Assignor {
	return &Assignor{conf: conf}
}

// Assign computes the SLA for a case created at createdAt and routed to
// routedPath, relative to now. Timestamps are normalized to UTC; zoneless
// inputs are assumed to already be UTC. Pure given now.
func (a *Assignor) Assign(createdAt time.Time, routedPath string, now time.Time) Status {
	if routedPath == advisory.PathMonitor {
		return Status{DueAt: nil, State: StateNoSLA}
	}

	hours, ok := a.conf.HoursByPath[routedPath]
	if !ok {
		hours = a.conf.DefaultHours
	}
	due := createdAt.UTC().Add(time.Duration(hours) * time.Hour)
	now = now.UTC()

	state := StateOnTrack
	switch {
	case now.After(due):
		state = StateBreached
	case due.Sub(now) <= time.Duration(a.conf.DueSoonHours)*time.Hour:
		state = StateDueSoon
	}

	return Status{DueAt: &due, State: state}
}
