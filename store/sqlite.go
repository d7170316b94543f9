package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stewardbot/steward/challenge"
)

// userStats is the row layout of the compliance records.
type userStats struct {
	UserID            string `gorm:"primaryKey;column:user_id"`
	Warnings          int    `gorm:"column:warnings"`
	Streaks           int    `gorm:"column:streaks"`
	TotalImages       int    `gorm:"column:total_images"`
	CompletedModules  string `gorm:"column:completed_modules"`
	LastActivityAt    *time.Time
	LastWarningAt     *time.Time
	Eliminated        bool
	RevocationPending bool
}

func (userStats) TableName() string {
	return "user_stats"
}

func toRow(r *challenge.Record) *userStats {
	return &userStats{
		UserID:            r.UserID,
		Warnings:          r.WarningCount,
		Streaks:           r.StreakCount,
		TotalImages:       r.TotalImages,
		CompletedModules:  strings.Join(r.CompletedModules, ","),
		LastActivityAt:    utc(r.LastActivityAt),
		LastWarningAt:     utc(r.LastWarningAt),
		Eliminated:        r.Eliminated,
		RevocationPending: r.RevocationPending,
	}
}

func (u *userStats) toRecord() *challenge.Record {
	r := &challenge.Record{
		UserID:            u.UserID,
		LastActivityAt:    utc(u.LastActivityAt),
		WarningCount:      u.Warnings,
		StreakCount:       u.Streaks,
		TotalImages:       u.TotalImages,
		Eliminated:        u.Eliminated,
		RevocationPending: u.RevocationPending,
		LastWarningAt:     utc(u.LastWarningAt),
	}
	for _, m := range strings.Split(u.CompletedModules, ",") {
		if m = strings.TrimSpace(m); m != "" {
			r.AddModule(m)
		}
	}
	return r
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// SQLite stores compliance records in the user_stats table. It implements challenge.Repository.
type SQLite struct {
	db *gorm.DB
}

var _ challenge.Repository = (*SQLite)(nil)

// Open connects to the database at dburl and migrates the schema.
//
// Accepted forms:
// - "sqlite://dir/steward.sqlite"
// - "sqlite=dir/steward.sqlite"
// - "dir/steward.sqlite"
func Open(dburl string) (*SQLite, error) {
	path := dburl
	switch {
	case strings.HasPrefix(dburl, "sqlite://"):
		path = dburl[len("sqlite://"):]
	case strings.HasPrefix(dburl, "sqlite="):
		path = dburl[len("sqlite="):]
	case strings.Contains(dburl, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabaseURL, dburl)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnsupportedDatabaseURL)
	}

	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxIdleTime(time.Hour)

	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		return nil, err
	}
	if err := db.Exec("PRAGMA synchronous=normal;").Error; err != nil {
		return nil, err
	}

	return NewSQLite(db)
}

// NewSQLite wraps an opened database and migrates the schema.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if err := db.AutoMigrate(&userStats{}); err != nil {
		return nil, fmt.Errorf("failed to migrate user_stats: %w", err)
	}
	return &SQLite{db: db}, nil
}

// LoadRecords returns every stored record.
func (s *SQLite) LoadRecords(ctx context.Context) ([]*challenge.Record, error) {
	var rows []userStats
	if err := s.db.WithContext(ctx).Order("user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read user_stats: %w", err)
	}

	records := make([]*challenge.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}

// SaveRecord inserts or replaces the record in one statement.
func (s *SQLite) SaveRecord(ctx context.Context, r *challenge.Record) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toRow(r)).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user_stats for %s: %w", r.UserID, err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}
