// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/stylematch/internal/adapters/repository"
	"github.com/okian/stylematch/internal/domain/recommend"
	"github.com/okian/stylematch/internal/domain/types"
)

const (
	// maxBodyBytes bounds every JSON request body.
	maxBodyBytes               = 1 << 20
	defaultMaxLeaderboardLimit = 100
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecommendDependencies
	StableDependencies
	OutcomeDependencies
	OfferingDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	recommendHandler   *RecommendHandler
	stableHandler      *StableHandler
	outcomesHandler    *OutcomesHandler
	offeringsHandler   *OfferingsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

type serverConfig struct {
	maxLimit        int
	defaultPageSize int
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

// WithMaxLeaderboardLimit caps the leaderboard size a client may ask for.
func WithMaxLeaderboardLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithDefaultPageSize sets the page size used when GET /recommend omits size.
func WithDefaultPageSize(n int) ServerOption {
	return func(c *serverConfig) {
		if n >= 0 {
			c.defaultPageSize = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLeaderboardLimit, defaultPageSize: recommend.DefaultPageSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		recommendHandler:   NewRecommendHandler(deps, cfg.defaultPageSize),
		stableHandler:      NewStableHandler(deps),
		outcomesHandler:    NewOutcomesHandler(deps),
		offeringsHandler:   NewOfferingsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/recommend", MetricsMiddleware(s.recommendHandler.HandleRecommend, "recommend"))
	mux.HandleFunc("/stable", MetricsMiddleware(s.stableHandler.HandleStable, "stable"))
	mux.HandleFunc("/outcomes", MetricsMiddleware(s.outcomesHandler.HandlePostOutcome, "outcomes"))
	mux.HandleFunc("/offerings", MetricsMiddleware(s.offeringsHandler.HandlePostOffering, "offerings"))
	mux.HandleFunc("/stylists/top", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/stylists/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeJSON reads a single JSON document into v and validates its tags.
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validate body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates store not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound)
}
