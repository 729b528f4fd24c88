package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stylematch/internal/domain/model"
)

// Generation ranges for synthetic offerings.
const (
	baseLatitude   = 40.7
	baseLongitude  = -74.0
	coordSpread    = 0.5
	minCostPerHour = 20.0
	costSpread     = 80.0
	minHours       = 0.5
	hoursSpread    = 2.5
)

// generator builds stylists and outcomes for one run. It is not safe for
// concurrent use.
type generator struct {
	rng   *rand.Rand
	runID string
}

func newGenerator(seed uint64) *generator {
	return &generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		runID: uuid.NewString()[:8],
	}
}

// offerings returns one offering per generated stylist. Stylist ids carry
// the run id so repeated runs against one server do not collide.
func (g *generator) offerings(n int, styleName string) []model.ServiceOffering {
	out := make([]model.ServiceOffering, n)
	for i := range out {
		stylistID := fmt.Sprintf("load-%s-%04d", g.runID, i)
		out[i] = model.ServiceOffering{
			ID: stylistID + "-" + styleName,
			Stylist: model.StylistCandidate{
				ID:        stylistID,
				Latitude:  baseLatitude + (g.rng.Float64()*2-1)*coordSpread,
				Longitude: baseLongitude + (g.rng.Float64()*2-1)*coordSpread,
			},
			StyleName:      styleName,
			CostPerHour:    minCostPerHour + g.rng.Float64()*costSpread,
			EstimatedHours: minHours + g.rng.Float64()*hoursSpread,
		}
	}
	return out
}

// outcomes draws n matches between distinct stylists. Lower indices win more
// often so the leaderboard ends up with a visible order.
func (g *generator) outcomes(stylists []string, n int) []Outcome {
	out := make([]Outcome, n)
	ts := time.Now().UTC().Format(time.RFC3339)
	for i := range out {
		a := g.rng.IntN(len(stylists))
		b := g.rng.IntN(len(stylists) - 1)
		if b >= a {
			b++
		}
		if a > b && g.rng.Float64() < 0.7 {
			a, b = b, a
		}
		out[i] = Outcome{
			EventID:  uuid.NewString(),
			WinnerID: stylists[a],
			LoserID:  stylists[b],
			TS:       ts,
		}
	}
	return out
}

// withDuplicates appends resubmissions of randomly chosen outcomes.
func (g *generator) withDuplicates(outcomes []Outcome, ratio float64) []Outcome {
	extra := int(float64(len(outcomes)) * ratio)
	all := make([]Outcome, 0, len(outcomes)+extra)
	all = append(all, outcomes...)
	for range extra {
		all = append(all, outcomes[g.rng.IntN(len(outcomes))])
	}
	return all
}
