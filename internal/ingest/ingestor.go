// Package ingest moves incoming events onto durable storage through a
// bounded worker pool, so a burst of writes degrades to backpressure instead
// of unbounded memory growth.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/event"
	"github.com/kadeyemi/casetrail/internal/metrics"
	"github.com/kadeyemi/casetrail/internal/store"
)

// ErrQueueFull means the bounded queue rejected the submission. Callers can
// treat it as backpressure; every other ingest error is a failed or stalled
// write, not throttling.
var ErrQueueFull = errors.New("ingest queue full")

// Result is the outcome of one durable event write.
type Result struct {
	ID        int64 `json:"event_id"`
	Duplicate bool  `json:"duplicate"`
	Err       error `json:"-"`
}

type work struct {
	e       event.Event
	key     string
	resultC chan Result
}

// Ingestor owns the write path to the event store.
type Ingestor struct {
	events store.EventStore
	pool   *workerPool[work]
	conf   config.IngestConf
}

// New creates an Ingestor and starts its worker pool.
func New(ctx context.Context, events store.EventStore, conf config.IngestConf) *Ingestor {
	ing := &Ingestor{events: events, conf: conf}
	ing.pool = newWorkerPool(ctx, conf.Workers, conf.QueueDepth, func(ctx context.Context, w work) {
		id, dup, err := events.InsertEvent(ctx, w.e, w.key)
		if err == nil && !dup {
			metrics.EventsIngested.Inc()
		}
		if w.resultC != nil {
			w.resultC <- Result{ID: id, Duplicate: dup, Err: err}
		}
	})
	return ing
}

// IngestSync writes one event and waits for the durable result.
// Returns ErrQueueFull when the queue is full; any other error means the
// write failed or did not complete within the configured submit timeout.
func (ing *Ingestor) IngestSync(ctx context.Context, e event.Event, idempotencyKey string) (Result, error) {
	resultC := make(chan Result, 1)
	if !ing.pool.Submit(work{e: e, key: idempotencyKey, resultC: resultC}) {
		metrics.EventsDropped.Inc()
		return Result{}, fmt.Errorf("%w (capacity %d)", ErrQueueFull, ing.conf.QueueDepth)
	}

	timeout := time.Duration(ing.conf.SubmitTimeoutMs) * time.Millisecond
	select {
	case res := <-resultC:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res, nil
	case <-time.After(timeout):
		return Result{}, fmt.Errorf("ingest timeout after %v", timeout)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// IngestAsync enqueues an event for background writing. Returns false if the
// queue is full.
func (ing *Ingestor) IngestAsync(e event.Event, idempotencyKey string) bool {
	if !ing.pool.Submit(work{e: e, key: idempotencyKey}) {
		metrics.EventsDropped.Inc()
		return false
	}
	return true
}

// QueueUtilization returns queue used / capacity (0-1).
func (ing *Ingestor) QueueUtilization() float64 {
	if ing.pool.QueueCap() == 0 {
		return 0
	}
	return float64(ing.pool.QueueLen()) / float64(ing.pool.QueueCap())
}

// Shutdown drains the queue and stops the workers.
func (ing *Ingestor) Shutdown() {
	ing.pool.Drain()
}
