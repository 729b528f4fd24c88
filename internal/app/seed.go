package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/pkg/logger"
)

// Seed is a YAML catalog of stylists and their offerings.
type Seed struct {
	Stylists  []SeedStylist  `yaml:"stylists"`
	Offerings []SeedOffering `yaml:"offerings"`
}

// SeedStylist is one stylist entry. An omitted eloRating means the store
// default; any given value, zero included, is kept.
type SeedStylist struct {
	ID          string   `yaml:"id"`
	EloRating   *float64 `yaml:"eloRating"`
	Latitude    float64  `yaml:"latitude"`
	Longitude   float64  `yaml:"longitude"`
	Specialties []string `yaml:"specialties"`
}

func (st SeedStylist) candidate() model.StylistCandidate {
	c := model.StylistCandidate{
		ID:          st.ID,
		Latitude:    st.Latitude,
		Longitude:   st.Longitude,
		Specialties: st.Specialties,
	}
	if st.EloRating != nil {
		c.EloRating, c.Rated = *st.EloRating, true
	}
	return c
}

// SeedAddOn is one priced extra.
type SeedAddOn struct {
	Name string  `yaml:"name"`
	Cost float64 `yaml:"cost"`
}

// SeedOffering references its stylist by id.
type SeedOffering struct {
	ID             string      `yaml:"id"`
	StylistID      string      `yaml:"stylistId"`
	StyleName      string      `yaml:"styleName"`
	CostPerHour    float64     `yaml:"costPerHour"`
	EstimatedHours float64     `yaml:"estimatedHours"`
	AddOns         []SeedAddOn `yaml:"addOns"`
}

// ReadSeed decodes a seed document.
func ReadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("%w: decode: %w", ErrSeed, err)
	}
	return seed, nil
}

// ReadSeedFile decodes the seed document at path.
func ReadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("%w: %w", ErrSeed, err)
	}
	defer f.Close()
	return ReadSeed(f)
}

// Resolve returns every offering joined with its stylist entry.
func (s Seed) Resolve() ([]model.ServiceOffering, error) {
	stylists := make(map[string]model.StylistCandidate, len(s.Stylists))
	for _, st := range s.Stylists {
		stylists[st.ID] = st.candidate()
	}
	out := make([]model.ServiceOffering, 0, len(s.Offerings))
	for _, o := range s.Offerings {
		st, ok := stylists[o.StylistID]
		if !ok {
			return nil, fmt.Errorf("%w: offering %q references unknown stylist %q", ErrSeed, o.ID, o.StylistID)
		}
		off := model.ServiceOffering{
			ID:             o.ID,
			Stylist:        st,
			StyleName:      o.StyleName,
			CostPerHour:    o.CostPerHour,
			EstimatedHours: o.EstimatedHours,
		}
		for _, a := range o.AddOns {
			off.AddOns = append(off.AddOns, model.AddOn(a))
		}
		out = append(out, off)
	}
	return out, nil
}

// LoadSeed registers every stylist and offering of seed directly in the
// store. Seeded stylists are not granted roles.
func (s *Service) LoadSeed(ctx context.Context, seed Seed) error {
	offerings, err := seed.Resolve()
	if err != nil {
		return err
	}
	for _, st := range seed.Stylists {
		if err := s.store.UpsertStylist(ctx, st.candidate()); err != nil {
			return fmt.Errorf("%w: stylist %q: %w", ErrSeed, st.ID, err)
		}
	}
	for _, o := range offerings {
		if _, err := s.store.AddOffering(ctx, o); err != nil {
			return fmt.Errorf("%w: offering %q: %w", ErrSeed, o.ID, err)
		}
	}
	s.logger.Info(ctx, "seed loaded",
		logger.Int("stylists", len(seed.Stylists)),
		logger.Int("offerings", len(offerings)),
	)
	return nil
}
