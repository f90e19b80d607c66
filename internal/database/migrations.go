package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillSceneOrder = "2026-08-14_backfill_scene_order"

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
		{name: migrationBackfillSceneOrder, apply: backfillSceneOrder},
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

// backfillSceneOrder derives order_index from insertion order for scripts
// whose scenes predate explicit ordering (every scene still at the zero
// default).
func backfillSceneOrder(db *gorm.DB) error {
	const statement = `
UPDATE scenes SET order_index = (
	SELECT COUNT(*) FROM scenes AS earlier
	WHERE earlier.script_id = scenes.script_id AND earlier.id < scenes.id
)
WHERE NOT EXISTS (
	SELECT 1 FROM scenes AS sibling
	WHERE sibling.script_id = scenes.script_id AND sibling.order_index <> 0
)`
	return db.Exec(statement).Error
}
