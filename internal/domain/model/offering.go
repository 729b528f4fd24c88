package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for offering validation.
var (
	ErrInvalidOffering = errors.New("invalid offering")
)

// AddOn is an optional extra priced on top of the hourly service.
type AddOn struct {
	Name string
	Cost float64
}

// ServiceOffering is a priced, timed service published by a stylist.
type ServiceOffering struct {
	ID             string
	Stylist        StylistCandidate
	StyleName      string
	CostPerHour    float64
	EstimatedHours float64
	AddOns         []AddOn
}

// TotalCost returns costPerHour*estimatedHours plus every add-on cost.
func (o ServiceOffering) TotalCost() float64 {
	total := o.CostPerHour * o.EstimatedHours
	for _, a := range o.AddOns {
		total += a.Cost
	}
	return total
}

// Validate checks the offering invariants.
func (o ServiceOffering) Validate() error {
	switch {
	case o.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidOffering)
	case o.Stylist.ID == "":
		return fmt.Errorf("%w: missing stylist", ErrInvalidOffering)
	case o.StyleName == "":
		return fmt.Errorf("%w: missing style name", ErrInvalidOffering)
	case o.CostPerHour < 0:
		return fmt.Errorf("%w: negative cost per hour", ErrInvalidOffering)
	case o.EstimatedHours <= 0:
		return fmt.Errorf("%w: estimated hours must be positive", ErrInvalidOffering)
	}
	for _, a := range o.AddOns {
		if a.Cost < 0 {
			return fmt.Errorf("%w: add-on %q has negative cost", ErrInvalidOffering, a.Name)
		}
	}
	return nil
}

// RankedOffering decorates an offering with values computed for one query.
type RankedOffering struct {
	ServiceOffering
	Distance  float64
	TotalCost float64
}
