package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/stylematch/internal/domain/matching"
	"github.com/okian/stylematch/internal/domain/model"
)

// StableDependencies defines the interface for stable matching runs.
type StableDependencies interface {
	StableMatch(ctx context.Context, customers []model.CustomerCandidate, stylists []matching.Stylist) ([]model.Pair, error)
}

// StableHandler handles stable matching requests.
type StableHandler struct {
	deps StableDependencies
}

// NewStableHandler creates a new stable matching handler.
func NewStableHandler(deps StableDependencies) *StableHandler {
	return &StableHandler{deps: deps}
}

type customerBody struct {
	ID               string `json:"id" validate:"required"`
	SubscriptionTier string `json:"subscriptionTier" validate:"required"`
}

type matchStylistBody struct {
	ID          string  `json:"id" validate:"required"`
	EloRating   float64 `json:"eloRating"`
	CostPerHour float64 `json:"costPerHour" validate:"gte=0"`
	Distance    float64 `json:"distance" validate:"gte=0"`
	Capacity    int     `json:"capacity,omitempty" validate:"gte=0"`
}

// stableRequest mirrors the OpenAPI schema for POST /stable.
type stableRequest struct {
	Customers []customerBody     `json:"customers" validate:"dive"`
	Stylists  []matchStylistBody `json:"stylists" validate:"dive"`
}

func (s stableRequest) toDomain() ([]model.CustomerCandidate, []matching.Stylist, error) {
	customers := make([]model.CustomerCandidate, len(s.Customers))
	for i, c := range s.Customers {
		tier, err := model.ParseTier(c.SubscriptionTier)
		if err != nil {
			return nil, nil, fmt.Errorf("customer %q: %w", c.ID, err)
		}
		customers[i] = model.CustomerCandidate{ID: c.ID, Tier: tier}
	}
	stylists := make([]matching.Stylist, len(s.Stylists))
	for i, st := range s.Stylists {
		stylists[i] = matching.Stylist{
			ID:        st.ID,
			EloRating: st.EloRating,
			Cost:      st.CostPerHour,
			Distance:  st.Distance,
			Capacity:  st.Capacity,
		}
	}
	return customers, stylists, nil
}

// HandleStable handles POST /stable requests.
func (h *StableHandler) HandleStable(w http.ResponseWriter, r *http.Request) {
	const op = "api.stable"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req stableRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	customers, stylists, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	pairs, err := h.deps.StableMatch(r.Context(), customers, stylists)
	switch {
	case errors.Is(err, matching.ErrDuplicateID), errors.Is(err, matching.ErrMissingID):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if pairs == nil {
		pairs = []model.Pair{}
	}
	writeJSON(w, http.StatusOK, pairs)
}
