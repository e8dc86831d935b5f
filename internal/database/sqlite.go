package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqliteDSN resolves the connection string for a file or in-memory database.
// Every in-memory handle gets a uniquely named shared-cache database so the
// pool's connections see the same data while separate handles stay isolated.
func sqliteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	params := url.Values{}
	params.Set("_foreign_keys", "1")
	for k, v := range cfg.Options {
		params.Set(k, v)
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		params.Set("mode", "memory")
		params.Set("cache", "shared")
		return fmt.Sprintf("file:%s?%s", uuid.NewString(), params.Encode()), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	if params.Get("_journal_mode") == "" {
		params.Set("_journal_mode", "WAL")
	}
	if params.Get("_busy_timeout") == "" {
		params.Set("_busy_timeout", "5000")
	}
	return fmt.Sprintf("file:%s?%s", filepath.ToSlash(path), params.Encode()), nil
}

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	// DSN parameters only reach connections opened by the driver; a
	// caller-supplied DSN may omit them.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	return db, nil
}
