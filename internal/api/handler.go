package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadeyemi/casetrail/internal/audit"
	"github.com/kadeyemi/casetrail/internal/casefile"
	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/event"
	"github.com/kadeyemi/casetrail/internal/ingest"
	"github.com/kadeyemi/casetrail/internal/metrics"
	"github.com/kadeyemi/casetrail/internal/store"
)

const maxBatchSize = 100

// Handler holds all HTTP handler dependencies.
type Handler struct {
	engine   *casefile.Engine
	ingestor *ingest.Ingestor
	store    store.Store
	loader   *config.Loader
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(engine *casefile.Engine, ingestor *ingest.Ingestor, st store.Store, loader *config.Loader) http.Handler {
	h := &Handler{engine: engine, ingestor: ingestor, store: st, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.ingestEvent)
	h.mux.HandleFunc("POST /v1/events/batch", h.ingestBatch)
	h.mux.HandleFunc("GET /v1/accounts/{account_id}/case", h.accountCase)
	h.mux.HandleFunc("POST /v1/accounts/{account_id}/decision", h.accountDecision)
	h.mux.HandleFunc("POST /v1/actions", h.recordAction)
	h.mux.HandleFunc("GET /v1/cases/{case_id}/actions", h.caseActions)
	h.mux.HandleFunc("GET /v1/config", h.showConfig)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// eventRequest is the POST /v1/events payload. created_at is optional
// RFC3339; absent means server receive time.
type eventRequest struct {
	AccountID      string                 `json:"account_id"`
	EventType      string                 `json:"event_type"`
	CreatedAt      string                 `json:"created_at,omitempty"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

func (req *eventRequest) toEvent() (event.Event, error) {
	e := event.Event{
		AccountID: req.AccountID,
		EventType: req.EventType,
		Payload:   req.Payload,
	}
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return event.Event{}, fmt.Errorf("created_at must be RFC3339")
		}
		e.CreatedAt = t.UTC()
	}
	return e, nil
}

// POST /v1/events — synchronous single-event ingestion. 2xx means the write
// is durable. 200 with duplicate=true is idempotent success.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.AccountID == "" || req.EventType == "" {
		writeError(w, http.StatusBadRequest, "account_id and event_type are required")
		return
	}
	e, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Idempotency precedence: header, then body field, then none.
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}

	// 429 is reserved for queue pressure; a failed or stalled store write is
	// a server fault, not something the client should back off from.
	res, err := h.ingestor.IngestSync(r.Context(), e, key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrQueueFull) {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, err.Error())
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// POST /v1/events/batch — async batch ingestion (up to 100 events). Each
// event without a key gets a generated one so retried batches stay safe.
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []eventRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one event")
		return
	}
	if len(reqs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(reqs), maxBatchSize))
		return
	}

	jobID := uuid.New().String()
	queued := 0
	for i := range reqs {
		if reqs[i].AccountID == "" || reqs[i].EventType == "" {
			continue
		}
		e, err := reqs[i].toEvent()
		if err != nil {
			continue
		}
		key := reqs[i].IdempotencyKey
		if key == "" {
			key = uuid.New().String()
		}
		if h.ingestor.IngestAsync(e, key) {
			queued++
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   jobID,
		"total":    len(reqs),
		"queued":   queued,
		"rejected": len(reqs) - queued,
	})
}

// GET /v1/accounts/{account_id}/case — the investigation-ready case file:
// timeline, signals, risk. Recomputed on every read.
func (h *Handler) accountCase(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account_id")
	events, err := h.store.ListEvents(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.BuildCase(accountID, events))
}

// decisionRequest carries the untrusted advisory payload and the citations
// that were offered to the reasoning component. Both optional: an absent
// advisory takes the fail-safe path.
type decisionRequest struct {
	Advisory        json.RawMessage `json:"advisory,omitempty"`
	PolicyCitations []string        `json:"policy_citations,omitempty"`
}

// POST /v1/accounts/{account_id}/decision — full pipeline run, written to
// the audit trail as a DECISION action.
func (h *Handler) accountDecision(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account_id")

	var req decisionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
			return
		}
	}

	events, err := h.store.ListEvents(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start := time.Now()
	record := h.engine.Decide(accountID, events, req.Advisory, req.PolicyCitations)
	metrics.DecisionDuration.Observe(float64(time.Since(start).Milliseconds()))
	metrics.Decisions.WithLabelValues(record.Decision.RoutedPath).Inc()
	if record.AdvisoryFailSafe {
		metrics.AdvisoryFailSafes.Inc()
	}
	if len(record.Decision.GuardrailNotes) > 0 {
		metrics.GuardrailOverrides.Inc()
	}
	for _, s := range record.Case.Signals {
		metrics.SignalsFired.WithLabelValues(s.Name).Inc()
	}

	_, err = h.store.RecordAction(r.Context(), audit.Action{
		CaseID:    record.Case.CaseID,
		AccountID: accountID,
		Kind:      audit.KindDecision,
		Extra: map[string]interface{}{
			"routed_path":              record.Decision.RoutedPath,
			"risk_band":                record.Case.Risk.RiskBand,
			"needs_human_confirmation": record.Decision.NeedsHumanConfirmation,
			"advisory_failsafe":        record.AdvisoryFailSafe,
		},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("record decision: %s", err))
		return
	}
	metrics.ActionsRecorded.WithLabelValues(audit.KindDecision).Inc()

	writeJSON(w, http.StatusOK, record)
}

// POST /v1/actions — record a human case action. An OVERRIDE without a
// reason is declined before any write.
func (h *Handler) recordAction(w http.ResponseWriter, r *http.Request) {
	var a audit.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := audit.Validate(a); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, audit.ErrReasonRequired) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	id, err := h.store.RecordAction(r.Context(), a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ActionsRecorded.WithLabelValues(a.Kind).Inc()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"action_id": id})
}

// GET /v1/cases/{case_id}/actions — the audit trail for one case.
func (h *Handler) caseActions(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")
	actions, err := h.store.ListActions(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case_id": caseID,
		"actions": actions,
	})
}

// GET /v1/config — show the tuning currently in effect.
func (h *Handler) showConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Config())
}

// POST /v1/config/reload — hot-reload tuning from disk. The loader validates
// before installing, so a rejected file leaves both the loader and the engine
// on the previous tuning.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.engine.SwapConfig(cfg)
	writeJSON(w, http.StatusOK, map[string]interface{}{"reloaded": true, "version": cfg.Version})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the ingest queue is >80% full or storage is down.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.ingestor.QueueUtilization()
	metrics.IngestQueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "storage_unreachable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
