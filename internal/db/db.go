package db

import (
	"fmt"
	"strings"

	"commentease/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the database named by dsn and migrates the schema.
// A dsn starting with "file:" or ending in ".db" selects SQLite, anything
// else is treated as a Postgres DSN. TranslateError is required: the
// voting engine relies on gorm.ErrDuplicatedKey to detect a concurrent
// insert on the (user, vote set) key and fall back to the revote path.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate creates or updates the schema for all engine and demo models.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.VoteSet{},
		&models.VoteRecord{},
		&models.CommentSet{},
		&models.Comment{},
		&models.CommentTreeEntry{},
		&models.Post{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
