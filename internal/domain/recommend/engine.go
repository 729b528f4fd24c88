// Package recommend ranks and pages service offerings for a style search.
package recommend

import (
	"context"
	"fmt"

	"github.com/okian/stylematch/internal/domain/geo"
	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/ranking"
)

// Default paging constants.
const (
	DefaultPageSize = 10
	defaultMaxSize  = 100
)

// Query describes one recommendation request.
type Query struct {
	StyleName string
	Latitude  float64
	Longitude float64
	Page      int
	Size      int
	MinCost   *float64
	MaxCost   *float64
}

// Page is a page of ranked offerings.
type Page struct {
	Content       []model.RankedOffering
	Page          int
	Size          int
	TotalElements int
	TotalPages    int
	Last          bool
	UsedFallback  bool
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithChain replaces the default ranking chain.
func WithChain(chain ranking.Chain) Option {
	return func(e *Engine) {
		if len(chain) > 0 {
			e.chain = chain
		}
	}
}

// WithMaxPageSize caps the requested page size.
func WithMaxPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSize = n
		}
	}
}

// Engine scores, sorts, filters and pages catalog offerings.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	catalog Catalog
	chain   ranking.Chain
	maxSize int
}

// NewEngine creates an Engine over catalog.
func NewEngine(catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		chain:   ranking.Default(),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend returns one page of offerings ranked for q.
func (e *Engine) Recommend(ctx context.Context, q Query) (Page, error) {
	if q.Page < 0 || q.Size < 0 {
		return Page{}, fmt.Errorf("%w: page=%d size=%d", ErrInvalidPage, q.Page, q.Size)
	}
	size := min(q.Size, e.maxSize)

	lookup, err := LookupOfferings(ctx, e.catalog, q.StyleName)
	if err != nil {
		return Page{}, err
	}

	ranked := Rank(lookup.Offerings, geo.Point{Lat: q.Latitude, Lon: q.Longitude}, e.chain)
	ranked = FilterByCost(ranked, q.MinCost, q.MaxCost)

	content, totalPages, last := Paginate(ranked, q.Page, size)
	return Page{
		Content:       content,
		Page:          q.Page,
		Size:          size,
		TotalElements: len(ranked),
		TotalPages:    totalPages,
		Last:          last,
		UsedFallback:  lookup.UsedFallback,
	}, nil
}

// Rank decorates offerings with distance and total cost and sorts them by chain.
func Rank(offerings []model.ServiceOffering, origin geo.Point, chain ranking.Chain) []model.RankedOffering {
	ranked := make([]model.RankedOffering, len(offerings))
	for i, o := range offerings {
		ranked[i] = model.RankedOffering{
			ServiceOffering: o,
			Distance:        geo.Distance(origin, geo.Point{Lat: o.Stylist.Latitude, Lon: o.Stylist.Longitude}),
			TotalCost:       o.TotalCost(),
		}
	}
	ranking.Sort(ranked, chain, candidate)
	return ranked
}

// FilterByCost keeps offerings whose total cost lies in the inclusive range.
// A nil bound is open.
func FilterByCost(ranked []model.RankedOffering, minCost, maxCost *float64) []model.RankedOffering {
	if minCost == nil && maxCost == nil {
		return ranked
	}
	out := make([]model.RankedOffering, 0, len(ranked))
	for _, r := range ranked {
		if minCost != nil && r.TotalCost < *minCost {
			continue
		}
		if maxCost != nil && r.TotalCost > *maxCost {
			continue
		}
		out = append(out, r)
	}
	return out
}

func candidate(r model.RankedOffering) ranking.Candidate {
	return ranking.Candidate{
		ID:        r.ID,
		EloRating: r.Stylist.EloRating,
		Cost:      r.TotalCost,
		Distance:  r.Distance,
	}
}
