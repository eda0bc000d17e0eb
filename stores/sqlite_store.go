package stores

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteStore opens (creating if needed) the sqlite database at path.
func NewSQLiteStore(path string) (*GormStore, error) {
	file, query, _ := strings.Cut(path, "?")
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(file, query)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// sqlite has a single writer.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return NewGormStore(db)
}

// sqliteDSN adds a busy timeout unless the query already sets one.
func sqliteDSN(file, query string) string {
	if strings.Contains(query, "_busy_timeout") {
		return file + "?" + query
	}
	if query == "" {
		return file + "?_busy_timeout=5000"
	}
	return file + "?" + query + "&_busy_timeout=5000"
}
