// Package cache mirrors the booking list and the last used group code to an
// on-device SQLite file, so a restarted client has data before the first
// remote snapshot arrives. The remote snapshot always wins once it does.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classflow/pkg/logger"
	"classflow/pkg/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	KeyBookings  = "classflow_bookings_v2"
	KeyGroupCode = "classflow_sync_key"
)

type Store interface {
	LoadBookings(ctx context.Context) ([]model.Booking, error)
	SaveBookings(ctx context.Context, bookings []model.Booking) error
	LoadGroupCode(ctx context.Context) (string, error)
	SaveGroupCode(ctx context.Context, code string) error
}

// Entry is one cached value, JSON-encoded.
type Entry struct {
	Key       string         `gorm:"primaryKey;size:64"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "cache_entries"
}

// SQLiteStore implements Store on gorm with the sqlite driver.
type SQLiteStore struct {
	db               *gorm.DB
	defaultGroupCode string
	log              *logger.Logger
}

// Open opens (or creates) the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path, defaultGroupCode string, log *logger.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	// one connection: sqlite has a single writer, and every ":memory:"
	// connection would otherwise see its own empty database
	sqlDB.SetMaxOpenConns(1)
	return New(db, defaultGroupCode, log)
}

// New wraps an existing gorm handle and makes sure the table exists.
func New(db *gorm.DB, defaultGroupCode string, log *logger.Logger) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate cache schema: %w", err)
	}
	return &SQLiteStore{db: db, defaultGroupCode: defaultGroupCode, log: log}, nil
}

// LoadBookings returns the cached list. A missing entry gives an empty list;
// an entry that does not decode is logged and also gives an empty list.
func (s *SQLiteStore) LoadBookings(ctx context.Context) ([]model.Booking, error) {
	raw, found, err := s.get(ctx, KeyBookings)
	if err != nil {
		return nil, err
	}
	if !found {
		return []model.Booking{}, nil
	}

	var bookings []model.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		s.log.Warn("Discarding unreadable cached bookings", "key", KeyBookings, "error", err)
		return []model.Booking{}, nil
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

func (s *SQLiteStore) SaveBookings(ctx context.Context, bookings []model.Booking) error {
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return s.put(ctx, KeyBookings, bookings)
}

// LoadGroupCode returns the last used code, or the configured default.
func (s *SQLiteStore) LoadGroupCode(ctx context.Context) (string, error) {
	raw, found, err := s.get(ctx, KeyGroupCode)
	if err != nil {
		return "", err
	}
	if !found {
		return s.defaultGroupCode, nil
	}

	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		s.log.Warn("Discarding unreadable cached group code", "key", KeyGroupCode, "error", err)
		return s.defaultGroupCode, nil
	}
	return code, nil
}

func (s *SQLiteStore) SaveGroupCode(ctx context.Context, code string) error {
	return s.put(ctx, KeyGroupCode, code)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where(&Entry{Key: key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLiteStore) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache key %s: %w", key, err)
	}

	entry := Entry{Key: key, Value: datatypes.JSON(data), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("write cache key %s: %w", key, err)
	}
	return nil
}
