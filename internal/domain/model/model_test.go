package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/stylematch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceOffering_TotalCost(t *testing.T) {
	Convey("Given an offering with add-ons", t, func() {
		o := model.ServiceOffering{
			ID:             "o-1",
			Stylist:        model.StylistCandidate{ID: "s-1"},
			StyleName:      "bob",
			CostPerHour:    70,
			EstimatedHours: 1,
			AddOns:         []model.AddOn{{Name: "wash", Cost: 20}},
		}

		Convey("Then the total is hourly cost times hours plus add-ons", func() {
			So(o.TotalCost(), ShouldEqual, 90.0)
		})

		Convey("And fractional hours are honored exactly", func() {
			o.EstimatedHours = 1.5
			o.AddOns = append(o.AddOns, model.AddOn{Name: "gloss", Cost: 12.5})
			So(o.TotalCost(), ShouldEqual, 70*1.5+20+12.5)
		})

		Convey("And without add-ons only the hourly part remains", func() {
			o.AddOns = nil
			So(o.TotalCost(), ShouldEqual, 70.0)
		})
	})
}

func TestServiceOffering_Validate(t *testing.T) {
	valid := model.ServiceOffering{
		ID:             "o-1",
		Stylist:        model.StylistCandidate{ID: "s-1"},
		StyleName:      "bob",
		CostPerHour:    50,
		EstimatedHours: 1,
	}

	Convey("Given offerings", t, func() {
		Convey("A well-formed offering validates", func() {
			So(valid.Validate(), ShouldBeNil)
		})

		Convey("Zero estimated hours is rejected", func() {
			o := valid
			o.EstimatedHours = 0
			err := o.Validate()
			So(errors.Is(err, model.ErrInvalidOffering), ShouldBeTrue)
		})

		Convey("Negative cost per hour is rejected", func() {
			o := valid
			o.CostPerHour = -1
			So(errors.Is(o.Validate(), model.ErrInvalidOffering), ShouldBeTrue)
		})

		Convey("A negative add-on is rejected", func() {
			o := valid
			o.AddOns = []model.AddOn{{Name: "x", Cost: -5}}
			So(o.Validate().Error(), ShouldContainSubstring, "negative cost")
		})

		Convey("A missing stylist is rejected", func() {
			o := valid
			o.Stylist = model.StylistCandidate{}
			So(o.Validate(), ShouldNotBeNil)
		})
	})
}

func TestSubscriptionTier(t *testing.T) {
	Convey("Given subscription tiers", t, func() {
		Convey("Then they are ordered", func() {
			So(model.TierFree, ShouldBeLessThan, model.TierPremium)
			So(model.TierPremium, ShouldBeLessThan, model.TierVIP)
		})

		Convey("And names parse case-insensitively", func() {
			tier, err := model.ParseTier(" premium ")
			So(err, ShouldBeNil)
			So(tier, ShouldEqual, model.TierPremium)
		})

		Convey("And unknown names fail", func() {
			_, err := model.ParseTier("gold")
			So(errors.Is(err, model.ErrUnknownTier), ShouldBeTrue)
		})

		Convey("And tiers round-trip through JSON as names", func() {
			type wrapper struct {
				Tier model.SubscriptionTier `json:"tier"`
			}
			b, err := json.Marshal(wrapper{Tier: model.TierVIP})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"tier":"VIP"}`)

			var w wrapper
			So(json.Unmarshal([]byte(`{"tier":"free"}`), &w), ShouldBeNil)
			So(w.Tier, ShouldEqual, model.TierFree)
		})
	})
}
