package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/types"
	"github.com/okian/stylematch/pkg/metrics"
)

// stylistRecord is the stored state of one stylist.
type stylistRecord struct {
	profile model.StylistCandidate
	version int64
}

// MemoryStore is an in-memory Store. Ratings live in a treap so leaderboard
// reads do not scan the whole population.
type MemoryStore struct {
	mu         sync.RWMutex
	root       *node
	stylists   map[string]*stylistRecord
	offerings  map[string]model.ServiceOffering
	order      []string            // offering IDs in insertion order
	byStyle    map[string][]string // style name -> offering IDs
	perStylist map[string]int      // stylist ID -> offering count
	defaultElo float64

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closeOnce             sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an in-memory store. The background metrics
// updater stops when ctx is cancelled or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		stylists:              make(map[string]*stylistRecord),
		offerings:             make(map[string]model.ServiceOffering),
		byStyle:               make(map[string][]string),
		perStylist:            make(map[string]int),
		defaultElo:            model.DefaultEloRating,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// UpsertStylist implements Store.
func (s *MemoryStore) UpsertStylist(_ context.Context, c model.StylistCandidate) error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidStylist)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(c)
	return nil
}

// upsertLocked must be called with s.mu held for writing.
func (s *MemoryStore) upsertLocked(c model.StylistCandidate) *stylistRecord {
	if rec, ok := s.stylists[c.ID]; ok {
		rec.profile.Latitude = c.Latitude
		rec.profile.Longitude = c.Longitude
		if len(c.Specialties) > 0 {
			rec.profile.Specialties = slices.Clone(c.Specialties)
		}
		return rec
	}
	if !c.Rated {
		c.EloRating = s.defaultElo
	}
	c.Rated = true
	c.Specialties = slices.Clone(c.Specialties)
	rec := &stylistRecord{profile: c, version: c.Version}
	s.stylists[c.ID] = rec
	s.root = insert(s.root, c.ID, c.EloRating)
	return rec
}

// AddOffering implements Store. Re-adding an offering ID replaces it.
func (s *MemoryStore) AddOffering(_ context.Context, o model.ServiceOffering) (bool, error) {
	if err := o.Validate(); err != nil {
		return false, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(o.Stylist)
	o.AddOns = slices.Clone(o.AddOns)

	if old, ok := s.offerings[o.ID]; ok {
		s.perStylist[old.Stylist.ID]--
		s.byStyle[old.StyleName] = slices.DeleteFunc(s.byStyle[old.StyleName], func(id string) bool { return id == o.ID })
	} else {
		s.order = append(s.order, o.ID)
	}
	first := s.perStylist[o.Stylist.ID] == 0
	s.perStylist[o.Stylist.ID]++
	s.offerings[o.ID] = o
	s.byStyle[o.StyleName] = append(s.byStyle[o.StyleName], o.ID)
	return first, nil
}

// FindOfferingsByStyleName implements Catalog.
func (s *MemoryStore) FindOfferingsByStyleName(_ context.Context, name string) ([]model.ServiceOffering, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(s.byStyle[name]), nil
}

// FindAllOfferings implements Catalog.
func (s *MemoryStore) FindAllOfferings(_ context.Context) ([]model.ServiceOffering, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(s.order), nil
}

// resolveLocked copies offerings with the current stylist profile and rating.
func (s *MemoryStore) resolveLocked(ids []string) []model.ServiceOffering {
	out := make([]model.ServiceOffering, 0, len(ids))
	for _, id := range ids {
		o, ok := s.offerings[id]
		if !ok {
			continue
		}
		if rec, ok := s.stylists[o.Stylist.ID]; ok {
			o.Stylist = rec.profile
			o.Stylist.Version = rec.version
		}
		o.AddOns = slices.Clone(o.AddOns)
		out = append(out, o)
	}
	return out
}

// OfferingCount implements Store.
func (s *MemoryStore) OfferingCount(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offerings)
}

// GetRating implements RatingStore.
func (s *MemoryStore) GetRating(_ context.Context, stylistID string) (Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.stylists[stylistID]
	if !ok {
		return Rating{}, ErrNotFound
	}
	return Rating{StylistID: stylistID, EloRating: rec.profile.EloRating, Version: rec.version}, nil
}

// CompareAndSwapRatings implements RatingStore. All rows are checked and
// written under one lock, each in O(log n) expected time.
func (s *MemoryStore) CompareAndSwapRatings(_ context.Context, updates ...RatingUpdate) ([]Rating, error) {
	if err := checkUpdates(updates); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]*stylistRecord, len(updates))
	for i, u := range updates {
		rec, ok := s.stylists[u.StylistID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, u.StylistID)
		}
		if rec.version != u.ExpectedVersion {
			return nil, fmt.Errorf("%w: stylist %s at version %d, expected %d", ErrVersionConflict, u.StylistID, rec.version, u.ExpectedVersion)
		}
		recs[i] = rec
	}

	out := make([]Rating, len(updates))
	for i, u := range updates {
		rec := recs[i]
		s.root = deleteNode(s.root, u.StylistID, rec.profile.EloRating)
		rec.profile.EloRating = u.EloRating
		rec.version++
		s.root = insert(s.root, u.StylistID, u.EloRating)
		out[i] = Rating{StylistID: u.StylistID, EloRating: u.EloRating, Version: rec.version}
	}
	return out, nil
}

// TopN implements Leaderboard. Stylists with equal ratings share a rank.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	nodes := make([]*node, 0, min(n, len(s.stylists)))
	collectTopN(s.root, n, &nodes)
	s.mu.RUnlock()

	out := make([]types.Entry, len(nodes))
	for i, nd := range nodes {
		rank := i + 1
		if i > 0 && nd.elo == nodes[i-1].elo {
			rank = out[i-1].Rank
		}
		out[i] = types.Entry{Rank: rank, StylistID: nd.id, EloRating: nd.elo}
	}
	return out, nil
}

// Rank implements Leaderboard in O(log n) expected time.
func (s *MemoryStore) Rank(_ context.Context, stylistID string) (types.Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.stylists[stylistID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	elo := rec.profile.EloRating
	return types.Entry{Rank: 1 + countAbove(s.root, elo), StylistID: stylistID, EloRating: elo}, nil
}

// Count implements Leaderboard.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stylists)
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				stylists, offerings := len(s.stylists), len(s.offerings)
				s.mu.RUnlock()
				metrics.UpdateStylistsTotal(stylists)
				metrics.UpdateOfferingsTotal(offerings)
			}
		}
	}()
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
