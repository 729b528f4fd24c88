// Package matching assigns customers to capacity-limited stylists with
// customer-proposing deferred acceptance (Gale-Shapley).
package matching

import (
	"fmt"
	"slices"

	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/ranking"
)

// DefaultCapacity is the number of open slots a stylist has per run.
const DefaultCapacity = 1

// Stylist is a stylist as submitted to one matching run. Cost and Distance
// are already resolved for the request; Capacity <= 0 means the engine default.
type Stylist struct {
	ID        string
	EloRating float64
	Cost      float64
	Distance  float64
	Capacity  int
}

// Result is the outcome of one matching run.
type Result struct {
	Pairs     []model.Pair
	Proposals int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithChain sets the customer-side ranking of stylists.
func WithChain(chain ranking.Chain) Option {
	return func(e *Engine) {
		if len(chain) > 0 {
			e.chain = chain
		}
	}
}

// WithDefaultCapacity sets the slot count used when a stylist has none.
func WithDefaultCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

// Engine runs stable matchings. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	chain    ranking.Chain
	capacity int
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		chain:    ranking.Default(),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StableMatch runs a matching with the default engine and returns its pairs.
func StableMatch(customers []model.CustomerCandidate, stylists []Stylist) []model.Pair {
	return NewEngine().Match(customers, stylists).Pairs
}

// Validate rejects inputs with empty or repeated ids on either side.
func Validate(customers []model.CustomerCandidate, stylists []Stylist) error {
	seen := make(map[string]bool, len(customers))
	for _, c := range customers {
		if c.ID == "" {
			return fmt.Errorf("%w: customer", ErrMissingID)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: customer %q", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
	}
	clear(seen)
	for _, s := range stylists {
		if s.ID == "" {
			return fmt.Errorf("%w: stylist", ErrMissingID)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: stylist %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Match pairs customers with stylists. Every customer proposes down its
// preference list; each stylist holds its best proposals up to capacity and
// rejects the rest. Unmatched participants are omitted from the result and
// pairs follow customer submission order.
func (e *Engine) Match(customers []model.CustomerCandidate, stylists []Stylist) Result {
	if len(customers) == 0 || len(stylists) == 0 {
		return Result{Pairs: []model.Pair{}}
	}

	prefs := e.stylistOrder(stylists)
	next := make([]int, len(customers))
	held := make([][]int, len(stylists))
	assigned := make([]int, len(customers))
	for i := range assigned {
		assigned[i] = -1
	}

	free := make([]int, len(customers))
	for i := range free {
		free[i] = i
	}

	proposals := 0
	for len(free) > 0 {
		c := free[0]
		free = free[1:]
		if next[c] >= len(prefs) {
			continue // exhausted every stylist
		}
		s := prefs[next[c]]
		next[c]++
		proposals++

		slots := e.capacityOf(stylists[s])
		held[s] = append(held[s], c)
		assigned[c] = s
		if len(held[s]) <= slots {
			continue
		}

		worst := e.worstApplicant(customers, held[s])
		rejected := held[s][worst]
		held[s] = slices.Delete(held[s], worst, worst+1)
		assigned[rejected] = -1
		free = append(free, rejected)
	}

	pairs := make([]model.Pair, 0, min(len(customers), len(stylists)))
	for c, s := range assigned {
		if s >= 0 {
			pairs = append(pairs, model.Pair{CustomerID: customers[c].ID, StylistID: stylists[s].ID})
		}
	}
	return Result{Pairs: pairs, Proposals: proposals}
}

// BlockingPairs returns every customer-stylist pair that would both prefer
// each other over the assignment in pairs. An empty result means pairs is
// stable under this engine's preferences.
func (e *Engine) BlockingPairs(customers []model.CustomerCandidate, stylists []Stylist, pairs []model.Pair) []model.Pair {
	custIdx := make(map[string]int, len(customers))
	for i, c := range customers {
		custIdx[c.ID] = i
	}
	styIdx := make(map[string]int, len(stylists))
	for i, s := range stylists {
		styIdx[s.ID] = i
	}

	assigned := make([]int, len(customers))
	for i := range assigned {
		assigned[i] = -1
	}
	held := make([][]int, len(stylists))
	for _, p := range pairs {
		c, okC := custIdx[p.CustomerID]
		s, okS := styIdx[p.StylistID]
		if !okC || !okS {
			continue
		}
		assigned[c] = s
		held[s] = append(held[s], c)
	}

	var blocking []model.Pair
	for c := range customers {
		for s := range stylists {
			if assigned[c] == s {
				continue
			}
			if assigned[c] >= 0 && !e.chain.Less(toCandidate(stylists[s]), toCandidate(stylists[assigned[c]])) {
				continue // c is at least as happy where it is
			}
			if !e.stylistWants(customers, stylists[s], held[s], c) {
				continue
			}
			blocking = append(blocking, model.Pair{CustomerID: customers[c].ID, StylistID: stylists[s].ID})
		}
	}
	return blocking
}

// stylistWants reports whether a stylist holding held would take customer c.
func (e *Engine) stylistWants(customers []model.CustomerCandidate, s Stylist, held []int, c int) bool {
	if len(held) < e.capacityOf(s) {
		return true
	}
	if len(held) == 0 {
		return false
	}
	worst := held[e.worstApplicant(customers, held)]
	return preferCustomer(customers, c, worst) < 0
}

// stylistOrder returns stylist indices from most to least preferred.
func (e *Engine) stylistOrder(stylists []Stylist) []int {
	order := make([]int, len(stylists))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return e.chain.Compare(toCandidate(stylists[a]), toCandidate(stylists[b]))
	})
	return order
}

// worstApplicant returns the position in held of the least preferred customer.
func (e *Engine) worstApplicant(customers []model.CustomerCandidate, held []int) int {
	worst := 0
	for i := 1; i < len(held); i++ {
		if preferCustomer(customers, held[i], held[worst]) > 0 {
			worst = i
		}
	}
	return worst
}

func (e *Engine) capacityOf(s Stylist) int {
	if s.Capacity > 0 {
		return s.Capacity
	}
	return e.capacity
}

func toCandidate(s Stylist) ranking.Candidate {
	return ranking.Candidate{ID: s.ID, EloRating: s.EloRating, Cost: s.Cost, Distance: s.Distance}
}
