package database

import (
	"fmt"

	"github.com/cineprompt/cineprompt/internal/project"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func models() []interface{} {
	return []interface{}{
		&project.Project{},
		&project.Script{},
		&project.Scene{},
		&project.Character{},
		&project.Dialogue{},
		&migrationRecord{},
	}
}

// OpenSQLite establishes a SQLite connection and performs schema migrations
// in place. It never drops tables; see Reset for the destructive path.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models()...); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// Reset drops every table and recreates the schema from scratch. All data is
// lost; callers reach this only through the explicit migrate --reset command.
func Reset(db *gorm.DB, logger *zap.Logger) error {
	if err := db.Migrator().DropTable(models()...); err != nil {
		return err
	}
	if err := db.AutoMigrate(models()...); err != nil {
		return err
	}
	if err := applyMigrations(db, logger); err != nil {
		return err
	}
	if logger != nil {
		logger.Warn("database reset: all tables dropped and recreated")
	}
	return nil
}
