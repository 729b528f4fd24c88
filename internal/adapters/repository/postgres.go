package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/types"
	"github.com/okian/stylematch/pkg/metrics"
)

type stylistRow struct {
	ID          string   `gorm:"primaryKey;size:64"`
	EloRating   float64  `gorm:"not null;index:idx_stylists_leaderboard,priority:1,sort:desc"`
	Latitude    float64  `gorm:"not null"`
	Longitude   float64  `gorm:"not null"`
	Specialties []string `gorm:"serializer:json"`
	Version     int64    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (stylistRow) TableName() string { return "stylists" }

type offeringRow struct {
	ID             string     `gorm:"primaryKey;size:64"`
	StylistID      string     `gorm:"not null;index;size:64"`
	Stylist        stylistRow `gorm:"foreignKey:StylistID"`
	StyleName      string     `gorm:"not null;index"`
	CostPerHour    float64    `gorm:"not null"`
	EstimatedHours float64    `gorm:"not null"`
	AddOns         []addOnRow `gorm:"foreignKey:OfferingID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
}

func (offeringRow) TableName() string { return "service_offerings" }

type addOnRow struct {
	ID         uint    `gorm:"primaryKey"`
	OfferingID string  `gorm:"not null;index;size:64"`
	Name       string  `gorm:"not null"`
	Cost       float64 `gorm:"not null"`
}

func (addOnRow) TableName() string { return "offering_add_ons" }

// PostgresStore is a Store backed by PostgreSQL through gorm. Rating writes
// are optimistic: the version column must match or the write is rejected.
type PostgresStore struct {
	db         *gorm.DB
	defaultElo float64
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and migrates the schema.
func NewPostgresStore(ctx context.Context, dsn string, defaultElo float64) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStoreFromDB(ctx, db, defaultElo)
}

// NewPostgresStoreFromDB wraps an open gorm handle and migrates the schema.
func NewPostgresStoreFromDB(ctx context.Context, db *gorm.DB, defaultElo float64) (*PostgresStore, error) {
	if defaultElo <= 0 {
		defaultElo = model.DefaultEloRating
	}
	if err := db.WithContext(ctx).AutoMigrate(&stylistRow{}, &offeringRow{}, &addOnRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &PostgresStore{db: db, defaultElo: defaultElo}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertStylist implements Store.
func (p *PostgresStore) UpsertStylist(ctx context.Context, c model.StylistCandidate) error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidStylist)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()
	return p.upsertStylist(p.db.WithContext(ctx), c)
}

func (p *PostgresStore) upsertStylist(tx *gorm.DB, c model.StylistCandidate) error {
	row := p.newStylistRow(c)
	updates := []string{"latitude", "longitude", "updated_at"}
	if len(c.Specialties) > 0 {
		updates = append(updates, "specialties")
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error
}

// AddOffering implements Store. Re-adding an offering ID replaces it.
func (p *PostgresStore) AddOffering(ctx context.Context, o model.ServiceOffering) (bool, error) {
	if err := o.Validate(); err != nil {
		return false, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	first := false
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.upsertStylist(tx, o.Stylist); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&offeringRow{}).
			Where("stylist_id = ? AND id <> ?", o.Stylist.ID, o.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		first = existing == 0

		if err := tx.Where("offering_id = ?", o.ID).Delete(&addOnRow{}).Error; err != nil {
			return err
		}
		row := toOfferingRow(o)
		return tx.Omit("Stylist").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stylist_id", "style_name", "cost_per_hour", "estimated_hours"}),
		}).Create(&row).Error
	})
	if err != nil {
		return false, fmt.Errorf("add offering %s: %w", o.ID, err)
	}
	return first, nil
}

// FindOfferingsByStyleName implements Catalog.
func (p *PostgresStore) FindOfferingsByStyleName(ctx context.Context, name string) ([]model.ServiceOffering, error) {
	return p.findOfferings(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Where("style_name = ?", name) })
}

// FindAllOfferings implements Catalog.
func (p *PostgresStore) FindAllOfferings(ctx context.Context) ([]model.ServiceOffering, error) {
	return p.findOfferings(ctx, func(tx *gorm.DB) *gorm.DB { return tx })
}

func (p *PostgresStore) findOfferings(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]model.ServiceOffering, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	var rows []offeringRow
	err := p.db.WithContext(ctx).
		Scopes(scope).
		Preload("Stylist").
		Preload("AddOns", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("find offerings: %w", err)
	}
	out := make([]model.ServiceOffering, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// OfferingCount implements Store.
func (p *PostgresStore) OfferingCount(ctx context.Context) int {
	var n int64
	if err := p.db.WithContext(ctx).Model(&offeringRow{}).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}

// GetRating implements RatingStore.
func (p *PostgresStore) GetRating(ctx context.Context, stylistID string) (Rating, error) {
	var row stylistRow
	err := p.db.WithContext(ctx).Select("id", "elo_rating", "version").First(&row, "id = ?", stylistID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Rating{}, ErrNotFound
	}
	if err != nil {
		return Rating{}, fmt.Errorf("get rating %s: %w", stylistID, err)
	}
	return Rating{StylistID: row.ID, EloRating: row.EloRating, Version: row.Version}, nil
}

// CompareAndSwapRatings implements RatingStore with one conditional UPDATE
// on the version column per row, inside a single transaction.
func (p *PostgresStore) CompareAndSwapRatings(ctx context.Context, updates ...RatingUpdate) ([]Rating, error) {
	if err := checkUpdates(updates); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	// rows are locked in id order so crossing pairs cannot deadlock
	order := make([]int, len(updates))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return strings.Compare(updates[a].StylistID, updates[b].StylistID) })

	out := make([]Rating, len(updates))
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, i := range order {
			u := updates[i]
			res := tx.Model(&stylistRow{}).
				Where("id = ? AND version = ?", u.StylistID, u.ExpectedVersion).
				Updates(map[string]any{
					"elo_rating": u.EloRating,
					"version":    gorm.Expr("version + 1"),
					"updated_at": now,
				})
			if res.Error != nil {
				return fmt.Errorf("update rating %s: %w", u.StylistID, res.Error)
			}
			if res.RowsAffected == 0 {
				var n int64
				if err := tx.Model(&stylistRow{}).Where("id = ?", u.StylistID).Count(&n).Error; err != nil {
					return fmt.Errorf("update rating %s: %w", u.StylistID, err)
				}
				if n == 0 {
					return fmt.Errorf("%w: %s", ErrNotFound, u.StylistID)
				}
				return fmt.Errorf("%w: stylist %s, expected version %d", ErrVersionConflict, u.StylistID, u.ExpectedVersion)
			}
			out[i] = Rating{StylistID: u.StylistID, EloRating: u.EloRating, Version: u.ExpectedVersion + 1}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TopN implements Leaderboard.
func (p *PostgresStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	var rows []stylistRow
	if err := p.db.WithContext(ctx).Select("id", "elo_rating").
		Order("elo_rating DESC, id ASC").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("top stylists: %w", err)
	}
	out := make([]types.Entry, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && r.EloRating == rows[i-1].EloRating {
			rank = out[i-1].Rank
		}
		out[i] = types.Entry{Rank: rank, StylistID: r.ID, EloRating: r.EloRating}
	}
	return out, nil
}

// Rank implements Leaderboard.
func (p *PostgresStore) Rank(ctx context.Context, stylistID string) (types.Entry, error) {
	r, err := p.GetRating(ctx, stylistID)
	if err != nil {
		return types.Entry{}, err
	}
	var above int64
	if err := p.db.WithContext(ctx).Model(&stylistRow{}).
		Where("elo_rating > ?", r.EloRating).Count(&above).Error; err != nil {
		return types.Entry{}, fmt.Errorf("rank %s: %w", stylistID, err)
	}
	return types.Entry{Rank: int(above) + 1, StylistID: stylistID, EloRating: r.EloRating}, nil
}

// Count implements Leaderboard.
func (p *PostgresStore) Count(ctx context.Context) int {
	var n int64
	if err := p.db.WithContext(ctx).Model(&stylistRow{}).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}

func (p *PostgresStore) newStylistRow(c model.StylistCandidate) stylistRow {
	elo := c.EloRating
	if !c.Rated {
		elo = p.defaultElo
	}
	return stylistRow{
		ID:          c.ID,
		EloRating:   elo,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Specialties: c.Specialties,
		Version:     c.Version,
	}
}

func toOfferingRow(o model.ServiceOffering) offeringRow {
	row := offeringRow{
		ID:             o.ID,
		StylistID:      o.Stylist.ID,
		StyleName:      o.StyleName,
		CostPerHour:    o.CostPerHour,
		EstimatedHours: o.EstimatedHours,
	}
	for _, a := range o.AddOns {
		row.AddOns = append(row.AddOns, addOnRow{OfferingID: o.ID, Name: a.Name, Cost: a.Cost})
	}
	return row
}

func (r offeringRow) toModel() model.ServiceOffering {
	o := model.ServiceOffering{
		ID: r.ID,
		Stylist: model.StylistCandidate{
			ID:          r.Stylist.ID,
			EloRating:   r.Stylist.EloRating,
			Rated:       true,
			Latitude:    r.Stylist.Latitude,
			Longitude:   r.Stylist.Longitude,
			Specialties: r.Stylist.Specialties,
			Version:     r.Stylist.Version,
		},
		StyleName:      r.StyleName,
		CostPerHour:    r.CostPerHour,
		EstimatedHours: r.EstimatedHours,
	}
	if o.Stylist.ID == "" {
		o.Stylist.ID = r.StylistID
	}
	for _, a := range r.AddOns {
		o.AddOns = append(o.AddOns, model.AddOn{Name: a.Name, Cost: a.Cost})
	}
	return o
}
