package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/stylematch/internal/domain/model"
)

// OfferingDependencies defines the interface for stylist onboarding.
type OfferingDependencies interface {
	// PublishOffering stores the offering and returns it as persisted.
	PublishOffering(ctx context.Context, o model.ServiceOffering) (model.ServiceOffering, error)
}

// OfferingsHandler handles offering publication.
type OfferingsHandler struct {
	deps OfferingDependencies
}

// NewOfferingsHandler creates a new offerings handler.
func NewOfferingsHandler(deps OfferingDependencies) *OfferingsHandler {
	return &OfferingsHandler{deps: deps}
}

// HandlePostOffering handles POST /offerings requests.
func (h *OfferingsHandler) HandlePostOffering(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_offering"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req offeringBody
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	stored, err := h.deps.PublishOffering(r.Context(), req.toModel())
	switch {
	case errors.Is(err, model.ErrInvalidOffering):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toOfferingBody(stored))
}
