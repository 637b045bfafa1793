// Package table stores each game as a row of a "games" table, looked up by an
// exact match on its name and written with upsert-on-conflict semantics.
package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// GameRow is one stored snapshot; the snapshot itself lives in Data
type GameRow struct {
	ID        uint        `gorm:"primaryKey"`
	Name      string      `gorm:"type:varchar(191);uniqueIndex;not null"`
	Data      *model.Game `gorm:"serializer:json;type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name
func (GameRow) TableName() string {
	return "games"
}

// Storage is a GORM-backed implementation of the game store
type Storage struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the games table
func Open(cfg Config) (*Storage, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, unavailable(err)
	}

	if cfg.Driver == DriverSQLite || cfg.Driver == "" {
		// A single writer avoids "database is locked" on the embedded file
		sqlDB, err := db.DB()
		if err != nil {
			return nil, unavailable(err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewWithDB(db)
}

// NewWithDB creates a storage on an existing connection and migrates the
// games table
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if err := db.AutoMigrate(&GameRow{}); err != nil {
		return nil, fmt.Errorf("migrate games table: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interfaces
var (
	_ storage.GameStore  = (*Storage)(nil)
	_ storage.GameLister = (*Storage)(nil)
)

func (s *Storage) SaveGame(ctx context.Context, key string, game *model.Game) error {
	row := GameRow{Name: key, Data: game}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, key string) (*model.Game, error) {
	var row GameRow
	err := s.db.WithContext(ctx).
		Where("name = ?", key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrGameNotFound
		}
		return nil, unavailable(err)
	}
	if row.Data == nil {
		return nil, model.ErrGameNotFound
	}
	return row.Data, nil
}

func (s *Storage) ListGames(ctx context.Context, prefix string) ([]*model.Game, error) {
	var rows []GameRow
	err := s.db.WithContext(ctx).
		Where("name LIKE ? ESCAPE '!'", likeEscaper.Replace(prefix)+"%").
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable(err)
	}

	games := make([]*model.Game, 0, len(rows))
	for _, row := range rows {
		if row.Data != nil {
			games = append(games, row.Data)
		}
	}
	return games, nil
}

var likeEscaper = strings.NewReplacer(
	"!", "!!",
	"%", "!%",
	"_", "!_",
)

func unavailable(err error) error {
	return fmt.Errorf("%w: table: %w", model.ErrStorageUnavailable, err)
}
