package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// OpenSQLite opens the SQLite database at path, creating its directory as
// needed, and applies the connection pragmas.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("[DATABASE] sqlite path is required")
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("[DATABASE] failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to open sqlite: %w", err)
	}

	// One connection serializes writers and keeps an in-memory database
	// visible to every query.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(connMaxIdleTime(path))

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("[DATABASE] failed to apply %q: %w", pragma, err)
		}
	}

	return conn, nil
}

// connMaxIdleTime is zero (never expire) for in-memory databases, whose
// contents live only as long as their single connection.
func connMaxIdleTime(path string) time.Duration {
	if path == MemoryPath {
		return 0
	}
	return 5 * time.Minute
}
