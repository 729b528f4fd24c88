package geo_test

import (
	"testing"

	"github.com/okian/stylematch/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistance(t *testing.T) {
	Convey("Given two points", t, func() {
		paris := geo.Point{Lat: 48.8566, Lon: 2.3522}
		london := geo.Point{Lat: 51.5074, Lon: -0.1278}

		Convey("The distance to itself is zero", func() {
			So(geo.Distance(paris, paris), ShouldEqual, 0)
		})

		Convey("The distance is symmetric", func() {
			So(geo.Distance(paris, london), ShouldAlmostEqual, geo.Distance(london, paris), 1e-9)
		})

		Convey("Paris to London is about 344 km", func() {
			So(geo.Distance(paris, london), ShouldAlmostEqual, 343.5, 1.5)
		})

		Convey("Distance grows with physical separation", func() {
			origin := geo.Point{Lat: 10, Lon: 10}
			near := geo.Distance(origin, geo.Point{Lat: 10.1, Lon: 10})
			mid := geo.Distance(origin, geo.Point{Lat: 10.5, Lon: 10})
			far := geo.Distance(origin, geo.Point{Lat: 12, Lon: 10})
			So(near, ShouldBeLessThan, mid)
			So(mid, ShouldBeLessThan, far)
		})

		Convey("Antipodal points are half the circumference apart", func() {
			d := geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 180})
			So(d, ShouldAlmostEqual, 3.14159265*geo.EarthRadiusKm, 0.01)
		})
	})
}
