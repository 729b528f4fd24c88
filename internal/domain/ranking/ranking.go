// Package ranking defines the ordered comparator chain shared by the
// recommendation and matching engines.
package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Errors returned by Parse.
var (
	ErrUnknownCriterion = errors.New("unknown ranking criterion")
	ErrEloNotFirst      = errors.New("elo_desc can only lead the ranking chain")
)

// Candidate carries the keys every criterion may compare.
type Candidate struct {
	ID        string
	EloRating float64
	Cost      float64
	Distance  float64
}

// Criterion is one named ordering key. Compare returns a negative number
// when a should rank before b.
type Criterion struct {
	Name    string
	Compare func(a, b Candidate) int
}

// Built-in criteria.
var (
	EloDesc = Criterion{Name: "elo_desc", Compare: func(a, b Candidate) int {
		return cmp.Compare(b.EloRating, a.EloRating)
	}}
	CostAsc = Criterion{Name: "cost_asc", Compare: func(a, b Candidate) int {
		return cmp.Compare(a.Cost, b.Cost)
	}}
	DistanceAsc = Criterion{Name: "distance_asc", Compare: func(a, b Candidate) int {
		return cmp.Compare(a.Distance, b.Distance)
	}}
	IDAsc = Criterion{Name: "id_asc", Compare: func(a, b Candidate) int {
		return strings.Compare(a.ID, b.ID)
	}}
)

var registry = map[string]Criterion{
	EloDesc.Name:     EloDesc,
	CostAsc.Name:     CostAsc,
	DistanceAsc.Name: DistanceAsc,
	IDAsc.Name:       IDAsc,
}

// Chain applies criteria in order until one distinguishes the candidates.
type Chain []Criterion

// Default returns Elo desc, cost asc, distance asc, id asc.
func Default() Chain {
	return Chain{EloDesc, CostAsc, DistanceAsc, IDAsc}
}

// Parse builds a chain from tie-break names. The chain always starts with
// elo_desc; names may repeat it only in first position. id_asc is appended
// when absent so the resulting order is total.
func Parse(names []string) (Chain, error) {
	if len(names) == 0 {
		return Default(), nil
	}
	chain := make(Chain, 1, len(names)+2)
	chain[0] = EloDesc
	seen := map[string]bool{EloDesc.Name: true}
	for i, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		c, ok := registry[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCriterion, n)
		}
		if key == EloDesc.Name {
			if i > 0 {
				return nil, fmt.Errorf("%w: found at position %d", ErrEloNotFirst, i+1)
			}
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		chain = append(chain, c)
	}
	if !seen[IDAsc.Name] {
		chain = append(chain, IDAsc)
	}
	return chain, nil
}

// Compare returns the first non-zero criterion result.
func (c Chain) Compare(a, b Candidate) int {
	for _, cr := range c {
		if r := cr.Compare(a, b); r != 0 {
			return r
		}
	}
	return 0
}

// Less reports whether a ranks strictly before b.
func (c Chain) Less(a, b Candidate) bool {
	return c.Compare(a, b) < 0
}

// Names lists the criterion names in order.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, cr := range c {
		out[i] = cr.Name
	}
	return out
}

// Sort orders items by the chain using key to extract each Candidate.
// Equal items keep their input order.
func Sort[T any](items []T, chain Chain, key func(T) Candidate) {
	slices.SortStableFunc(items, func(a, b T) int {
		return chain.Compare(key(a), key(b))
	})
}
