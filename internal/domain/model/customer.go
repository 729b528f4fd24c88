package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTier is returned when a subscription tier name is not recognized.
var ErrUnknownTier = errors.New("unknown subscription tier")

// SubscriptionTier is an ordered customer service level. Higher values rank
// first in a stylist's preference.
type SubscriptionTier int

// Known tiers, in ascending order.
const (
	TierFree SubscriptionTier = iota
	TierPremium
	TierVIP
)

var tierNames = map[SubscriptionTier]string{
	TierFree:    "FREE",
	TierPremium: "PREMIUM",
	TierVIP:     "VIP",
}

func (t SubscriptionTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TIER(%d)", int(t))
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (SubscriptionTier, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, n := range tierNames {
		if n == name {
			return t, nil
		}
	}
	return TierFree, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t SubscriptionTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SubscriptionTier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CustomerCandidate is a read-only customer snapshot for one matching request.
type CustomerCandidate struct {
	ID   string
	Tier SubscriptionTier
}

// Pair is one customer-stylist assignment produced by a matching run.
type Pair struct {
	CustomerID string `json:"customerId"`
	StylistID  string `json:"stylistId"`
}
