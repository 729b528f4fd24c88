package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/stylematch/internal/app"
	"github.com/okian/stylematch/internal/config"
	"github.com/okian/stylematch/pkg/logger"
)

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service built from default config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.DefaultPageSize = 1

		opts, err := service.FromConfig(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		svc := service.New(opts...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(func() { _ = svc.Stop(ctx) })

		seed, err := service.ReadSeed(strings.NewReader(`
stylists:
  - {id: s1, latitude: 0, longitude: 0}
offerings:
  - {id: o1, stylistId: s1, styleName: bob, costPerHour: 10, estimatedHours: 1}
  - {id: o2, stylistId: s1, styleName: bob, costPerHour: 20, estimatedHours: 1}
`))
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.LoadSeed(ctx, seed), convey.ShouldBeNil)

		mux := newMux(ctx, svc, cfg)

		get := func(path string) *httptest.ResponseRecorder {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			return rr
		}

		convey.Convey("Then every surface is mounted", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stylists/s1").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the configured default page size applies", func() {
			rr := get("/recommend?styleName=bob&latitude=0&longitude=0")
			convey.So(rr.Code, convey.ShouldEqual, http.StatusOK)
			var body struct {
				Size       int `json:"size"`
				TotalPages int `json:"totalPages"`
			}
			convey.So(json.NewDecoder(rr.Body).Decode(&body), convey.ShouldBeNil)
			convey.So(body.Size, convey.ShouldEqual, 1)
			convey.So(body.TotalPages, convey.ShouldEqual, 2)
		})

		convey.Convey("Then the configured leaderboard cap applies", func() {
			convey.So(get("/stylists/top?limit=101").Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(get("/stylists/top?limit=100").Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}
