package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/maligree/corpus-import/pkg/runner"
)

// segmentSeparator joins unit segments into one text column.
const segmentSeparator = "\n"

// UnitRecord is the persisted form of one unit. The reading app reads
// the same embedded database, so the schema is the contract.
type UnitRecord struct {
	ID           uint   `gorm:"primaryKey"`
	CollectionID string `gorm:"index:idx_unit_position,unique;size:64"`
	GroupID      string `gorm:"index:idx_unit_position,unique;size:64"`
	UnitIndex    int    `gorm:"index:idx_unit_position,unique"`
	Title        string
	Body         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SQLiteStore persists units into the app's embedded database.
type SQLiteStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database file and migrates the
// schema.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&UnitRecord{}); err != nil {
		return nil, fmt.Errorf("migrate unit schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite-store").Logger(),
	}, nil
}

// PersistUnit implements Store. Re-imports upsert on the unit's
// position so a repeated run refreshes content in place.
func (s *SQLiteStore) PersistUnit(ctx context.Context, unit *runner.StructuredUnit) (string, error) {
	record := UnitRecord{
		CollectionID: unit.CollectionID,
		GroupID:      unit.GroupID,
		UnitIndex:    unit.Index,
		Title:        unit.Title,
		Body:         strings.Join(unit.Segments, segmentSeparator),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_id"}, {Name: "group_id"}, {Name: "unit_index"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err != nil {
		return "", fmt.Errorf("upsert unit %s/%s/%d: %w", unit.CollectionID, unit.GroupID, unit.Index, err)
	}

	ref := fmt.Sprintf("units/%s/%s/%d", unit.CollectionID, unit.GroupID, unit.Index)

	s.logger.Debug().
		Str("ref", ref).
		Int("segments", len(unit.Segments)).
		Msg("Unit persisted")

	return ref, nil
}

// GetUnit reads one unit back, for verification tooling.
func (s *SQLiteStore) GetUnit(ctx context.Context, collectionID, groupID string, index int) (*runner.StructuredUnit, error) {
	var record UnitRecord
	err := s.db.WithContext(ctx).
		Where("collection_id = ? AND group_id = ? AND unit_index = ?", collectionID, groupID, index).
		First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("load unit %s/%s/%d: %w", collectionID, groupID, index, err)
	}

	return &runner.StructuredUnit{
		CollectionID: record.CollectionID,
		GroupID:      record.GroupID,
		Index:        record.UnitIndex,
		Title:        record.Title,
		Segments:     strings.Split(record.Body, segmentSeparator),
	}, nil
}

// Count returns the number of persisted units.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&UnitRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB handle: %w", err)
	}
	return sqlDB.Close()
}
