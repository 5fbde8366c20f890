package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tasteboard/backend/internal/boards"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillBoardExternalIDs = "2026-05-12_backfill_board_external_ids"
	migrationBackfillBoardRequestIDs  = "2026-08-30_backfill_board_request_ids"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillBoardExternalIDs, apply: backfillBoardExternalIDs},
		{name: migrationBackfillBoardRequestIDs, apply: backfillBoardRequestIDs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillBoardExternalIDs assigns sharing identifiers to rows created before
// the external_id column existed.
func backfillBoardExternalIDs(db *gorm.DB) error {
	var stale []boards.Board
	if err := db.Where("external_id = ''").Find(&stale).Error; err != nil {
		return err
	}
	for _, board := range stale {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		if err := db.Model(&boards.Board{}).
			Where("id = ?", board.ID).
			Update("external_id", id.String()).Error; err != nil {
			return err
		}
	}
	return nil
}

// backfillBoardRequestIDs gives rows created before the unique
// (owner_id, request_id) index a per-board request key, copying the external
// ID the way new keyless creates do. Runs after the external-id backfill.
func backfillBoardRequestIDs(db *gorm.DB) error {
	return db.Model(&boards.Board{}).
		Where("request_id = ''").
		Update("request_id", gorm.Expr("external_id")).Error
}
