package database

import (
	"strings"

	"github.com/PhilHem/go-dashboard-shell/backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(path string) error {
	var err error
	DB, err = Open(path)
	return err
}

// Open opens the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	// Every connection to an in-memory database sees its own empty database.
	if strings.Contains(path, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&models.Account{}, &models.LogEntry{}, &models.Snapshot{}); err != nil {
		return nil, err
	}
	return db, nil
}
