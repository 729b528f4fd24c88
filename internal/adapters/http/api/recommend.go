package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/recommend"
)

// RecommendDependencies defines the interface for recommendation lookups.
type RecommendDependencies interface {
	Recommend(ctx context.Context, q recommend.Query) (recommend.Page, error)
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps        RecommendDependencies
	defaultSize int
}

// NewRecommendHandler creates a new recommendation handler. defaultSize is
// used when a request omits size.
func NewRecommendHandler(deps RecommendDependencies, defaultSize int) *RecommendHandler {
	return &RecommendHandler{deps: deps, defaultSize: defaultSize}
}

type addOnBody struct {
	Name string  `json:"name" validate:"required"`
	Cost float64 `json:"cost" validate:"gte=0"`
}

type stylistBody struct {
	ID          string   `json:"id" validate:"required"`
	EloRating   float64  `json:"eloRating,omitempty"`
	Latitude    float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Specialties []string `json:"specialties,omitempty"`
}

type offeringBody struct {
	ID             string      `json:"id"`
	Stylist        stylistBody `json:"stylist"`
	StyleName      string      `json:"styleName" validate:"required"`
	CostPerHour    float64     `json:"costPerHour" validate:"gte=0"`
	EstimatedHours float64     `json:"estimatedHours" validate:"gt=0"`
	AddOns         []addOnBody `json:"addOns,omitempty" validate:"dive"`
}

type rankedOfferingBody struct {
	offeringBody
	TotalCost float64 `json:"totalCost"`
	Distance  float64 `json:"distance"`
}

type pageResponse struct {
	Content       []rankedOfferingBody `json:"content"`
	Page          int                  `json:"page"`
	Size          int                  `json:"size"`
	TotalElements int                  `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Last          bool                 `json:"last"`
	UsedFallback  bool                 `json:"usedFallback"`
}

// HandleRecommend handles GET /recommend requests.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseQuery(r.URL.Query(), h.defaultSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	page, err := h.deps.Recommend(r.Context(), q)
	switch {
	case errors.Is(err, recommend.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page))
}

func parseQuery(v url.Values, defaultSize int) (recommend.Query, error) {
	q := recommend.Query{
		StyleName: strings.TrimSpace(v.Get("styleName")),
		Size:      defaultSize,
	}
	if q.StyleName == "" {
		return q, errors.New("missing styleName")
	}
	var err error
	if q.Latitude, err = floatParam(v, "latitude"); err != nil {
		return q, err
	}
	if q.Longitude, err = floatParam(v, "longitude"); err != nil {
		return q, err
	}
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return q, fmt.Errorf("invalid page %q", s)
		}
	}
	if s := v.Get("size"); s != "" {
		if q.Size, err = strconv.Atoi(s); err != nil {
			return q, fmt.Errorf("invalid size %q", s)
		}
	}
	if q.MinCost, err = optionalFloat(v, "minCost"); err != nil {
		return q, err
	}
	if q.MaxCost, err = optionalFloat(v, "maxCost"); err != nil {
		return q, err
	}
	return q, nil
}

func floatParam(v url.Values, name string) (float64, error) {
	s := v.Get(name)
	if s == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return f, nil
}

func optionalFloat(v url.Values, name string) (*float64, error) {
	if v.Get(name) == "" {
		return nil, nil
	}
	f, err := floatParam(v, name)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func toPageResponse(p recommend.Page) pageResponse {
	content := make([]rankedOfferingBody, len(p.Content))
	for i, ro := range p.Content {
		content[i] = rankedOfferingBody{
			offeringBody: toOfferingBody(ro.ServiceOffering),
			TotalCost:    ro.TotalCost,
			Distance:     ro.Distance,
		}
	}
	return pageResponse{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Last:          p.Last,
		UsedFallback:  p.UsedFallback,
	}
}

func toOfferingBody(o model.ServiceOffering) offeringBody {
	b := offeringBody{
		ID: o.ID,
		Stylist: stylistBody{
			ID:          o.Stylist.ID,
			EloRating:   o.Stylist.EloRating,
			Latitude:    o.Stylist.Latitude,
			Longitude:   o.Stylist.Longitude,
			Specialties: o.Stylist.Specialties,
		},
		StyleName:      o.StyleName,
		CostPerHour:    o.CostPerHour,
		EstimatedHours: o.EstimatedHours,
	}
	for _, a := range o.AddOns {
		b.AddOns = append(b.AddOns, addOnBody(a))
	}
	return b
}

func (b offeringBody) toModel() model.ServiceOffering {
	o := model.ServiceOffering{
		ID: b.ID,
		Stylist: model.StylistCandidate{
			ID:          b.Stylist.ID,
			Latitude:    b.Stylist.Latitude,
			Longitude:   b.Stylist.Longitude,
			Specialties: b.Stylist.Specialties,
		},
		StyleName:      b.StyleName,
		CostPerHour:    b.CostPerHour,
		EstimatedHours: b.EstimatedHours,
	}
	for _, a := range b.AddOns {
		o.AddOns = append(o.AddOns, model.AddOn(a))
	}
	return o
}
