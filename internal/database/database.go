package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ksred/coinkong/internal/database/migrations"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN names a fresh in-memory database; nothing survives a restart.
// Each call yields a different name so two journals never share a table.
func MemoryDSN() string {
	return fmt.Sprintf("file:coinkong-%s?mode=memory&cache=shared", uuid.NewString())
}

// NewDatabase opens the journal database and runs migrations. An empty dsn
// means a private in-memory database.
func NewDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = MemoryDSN()
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// A shared-cache memory database disappears when its last connection
	// closes, so keep exactly one open.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := migrations.AddSwapEvents(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
