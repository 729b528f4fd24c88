package ranking_test

import (
	"errors"
	"testing"

	"github.com/okian/stylematch/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultChain(t *testing.T) {
	Convey("Given the default chain", t, func() {
		chain := ranking.Default()

		Convey("Higher Elo ranks first regardless of cost", func() {
			a := ranking.Candidate{ID: "a", EloRating: 1700, Cost: 90}
			b := ranking.Candidate{ID: "b", EloRating: 1600, Cost: 50}
			So(chain.Less(a, b), ShouldBeTrue)
			So(chain.Less(b, a), ShouldBeFalse)
		})

		Convey("Equal Elo falls back to cheaper first", func() {
			a := ranking.Candidate{ID: "a", EloRating: 1600, Cost: 90}
			b := ranking.Candidate{ID: "b", EloRating: 1600, Cost: 50}
			So(chain.Less(b, a), ShouldBeTrue)
		})

		Convey("Equal Elo and cost falls back to nearer first", func() {
			a := ranking.Candidate{ID: "a", EloRating: 1600, Cost: 50, Distance: 3}
			b := ranking.Candidate{ID: "b", EloRating: 1600, Cost: 50, Distance: 1}
			So(chain.Less(b, a), ShouldBeTrue)
		})

		Convey("Fully tied candidates order by id", func() {
			a := ranking.Candidate{ID: "a", EloRating: 1600}
			b := ranking.Candidate{ID: "b", EloRating: 1600}
			So(chain.Compare(a, b), ShouldBeLessThan, 0)
			So(chain.Compare(a, a), ShouldEqual, 0)
		})

		Convey("Names reflect the order", func() {
			So(chain.Names(), ShouldResemble, []string{"elo_desc", "cost_asc", "distance_asc", "id_asc"})
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given criterion names", t, func() {
		Convey("An empty list yields the default chain", func() {
			chain, err := ranking.Parse(nil)
			So(err, ShouldBeNil)
			So(chain.Names(), ShouldResemble, ranking.Default().Names())
		})

		Convey("Tie-breaks follow elo_desc with id_asc appended", func() {
			chain, err := ranking.Parse([]string{"distance_asc", "Cost_Asc", "distance_asc"})
			So(err, ShouldBeNil)
			So(chain.Names(), ShouldResemble, []string{"elo_desc", "distance_asc", "cost_asc", "id_asc"})
		})

		Convey("A leading elo_desc is accepted", func() {
			chain, err := ranking.Parse([]string{"ELO_DESC", "distance_asc"})
			So(err, ShouldBeNil)
			So(chain.Names(), ShouldResemble, []string{"elo_desc", "distance_asc", "id_asc"})
		})

		Convey("Elo leads even when only a tie-break is named", func() {
			chain, err := ranking.Parse([]string{"cost_asc"})
			So(err, ShouldBeNil)
			a := ranking.Candidate{ID: "a", EloRating: 1600, Cost: 50}
			b := ranking.Candidate{ID: "b", EloRating: 1700, Cost: 90}
			So(chain.Less(b, a), ShouldBeTrue)
		})

		Convey("Demoting elo_desc fails", func() {
			_, err := ranking.Parse([]string{"cost_asc", "elo_desc"})
			So(errors.Is(err, ranking.ErrEloNotFirst), ShouldBeTrue)
		})

		Convey("Unknown names fail", func() {
			_, err := ranking.Parse([]string{"popularity"})
			So(errors.Is(err, ranking.ErrUnknownCriterion), ShouldBeTrue)
		})
	})
}

func TestSort(t *testing.T) {
	Convey("Given a slice of candidates", t, func() {
		items := []ranking.Candidate{
			{ID: "c", EloRating: 1500, Cost: 10},
			{ID: "a", EloRating: 1800, Cost: 80},
			{ID: "b", EloRating: 1500, Cost: 5},
		}

		ranking.Sort(items, ranking.Default(), func(c ranking.Candidate) ranking.Candidate { return c })

		So(items[0].ID, ShouldEqual, "a")
		So(items[1].ID, ShouldEqual, "b")
		So(items[2].ID, ShouldEqual, "c")
	})
}
