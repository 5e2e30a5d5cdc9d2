package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps a gorm DB instance and implements Backend on postgres.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new store helper from a gorm DB.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// DB exposes the underlying gorm DB instance.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil {
		return nil, ErrNotFound
	}
	var e Entry
	err := s.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s == nil {
		return nil
	}
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&Entry{}, "key = ?", key).Error
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession inserts a session row; an existing row is left untouched.
func (s *Store) CreateSession(ctx context.Context, rec SessionRecord) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// CompleteSession marks a session as finished with its final counters.
func (s *Store) CompleteSession(ctx context.Context, id uuid.UUID, res SessionResult) error {
	if s == nil {
		return nil
	}
	tx := s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Updates(map[string]any{
		"active":         false,
		"reason":         res.Reason,
		"solved":         res.Solved,
		"errors":         res.Errors,
		"level":          res.Level,
		"elapsed_millis": res.ElapsedMillis,
		"completed_at":   res.CompletedAt,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FetchStats aggregates counts for the stats endpoint.
func (s *Store) FetchStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	q := func() *gorm.DB { return s.db.WithContext(ctx).Model(&SessionRecord{}) }
	if err := q().Count(&stats.Started).Error; err != nil {
		return stats, err
	}
	if err := q().Where("active = ?", true).Count(&stats.Active).Error; err != nil {
		return stats, err
	}
	if err := q().Where("completed_at IS NOT NULL").Count(&stats.Completed).Error; err != nil {
		return stats, err
	}
	if err := q().Select("COALESCE(SUM(solved), 0)").Scan(&stats.Solved).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
