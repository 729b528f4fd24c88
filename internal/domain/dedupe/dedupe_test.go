package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/stylematch/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When an outcome event is recorded twice", func() {
			id := uuid.NewString()
			first := d.SeenAndRecord(ctx, id)
			second := d.SeenAndRecord(ctx, id)

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an event is unrecorded", func() {
			d.SeenAndRecord(ctx, "outcome-1")
			d.Unrecord(ctx, "outcome-1")
			d.Unrecord(ctx, "never-seen")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "outcome-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a window of three", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"o-1", "o-2", "o-3", "o-4"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("Then the oldest event is forgotten", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "o-4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "o-3"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "o-1"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
		})

		Convey("And unrecording shrinks the window contents", func() {
			d.Unrecord(ctx, "o-3")
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "o-5"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "o-4"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("o-%d", i))
		}

		Convey("Then nothing is evicted", func() {
			So(d.Size(), ShouldEqual, 1000)
			So(d.SeenAndRecord(ctx, "o-0"), ShouldBeTrue)
			d.Unrecord(ctx, "o-0")
			So(d.Size(), ShouldEqual, 999)
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given goroutines racing on the same event ids", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const workers, events = 8, 100

		var mu sync.Mutex
		fresh := 0
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < events; i++ {
					if !d.SeenAndRecord(context.Background(), fmt.Sprintf("o-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each event is admitted exactly once", func() {
			So(fresh, ShouldEqual, events)
			So(d.Size(), ShouldEqual, events)
		})
	})
}
