package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stylematch/internal/adapters/mq/queue"
	"github.com/okian/stylematch/internal/domain/dedupe"
	"github.com/okian/stylematch/internal/domain/model"
)

// OutcomeDependencies defines the interface for match outcome intake.
type OutcomeDependencies interface {
	dedupe.Deduper
	// Enqueue pushes an outcome for async rating. It returns queue.ErrFull
	// on backpressure.
	Enqueue(ctx context.Context, o model.MatchOutcome) error
}

// OutcomesHandler handles match outcome submissions.
type OutcomesHandler struct {
	deps OutcomeDependencies
	now  func() time.Time
}

// NewOutcomesHandler creates a new outcomes handler.
func NewOutcomesHandler(deps OutcomeDependencies) *OutcomesHandler {
	return &OutcomesHandler{deps: deps, now: time.Now}
}

// outcomeRequest mirrors the OpenAPI schema for POST /outcomes.
type outcomeRequest struct {
	EventID  string `json:"eventId,omitempty"`
	WinnerID string `json:"winnerId" validate:"required"`
	LoserID  string `json:"loserId" validate:"required,nefield=WinnerID"`
	TS       string `json:"ts,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (o outcomeRequest) toDomain(now time.Time) model.MatchOutcome {
	out := model.MatchOutcome{
		EventID:    strings.TrimSpace(o.EventID),
		WinnerID:   o.WinnerID,
		LoserID:    o.LoserID,
		OccurredAt: now.UTC(),
	}
	if out.EventID == "" {
		out.EventID = uuid.NewString()
	}
	if ts, err := time.Parse(time.RFC3339, o.TS); err == nil {
		out.OccurredAt = ts.UTC()
	}
	return out
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"eventId"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostOutcome handles POST /outcomes requests.
func (h *OutcomesHandler) HandlePostOutcome(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_outcome"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req outcomeRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	outcome := req.toDomain(h.now())

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), outcome.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: outcome.EventID, Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(r.Context(), outcome); err != nil {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), outcome.EventID)
		if errors.Is(err, queue.ErrFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: outcome.EventID})
}
