package repository

import (
	"context"
	"fmt"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
)

// ReadingStore is the Record Store for energy readings. It has no awareness
// of auditing.
type ReadingStore interface {
	// Insert stores a reading with server-assigned id and timestamps and
	// returns the stored row.
	Insert(ctx context.Context, reading db.NewReading) (*db.EnergyReading, error)
	// GetByID returns nil without error when the row does not exist.
	GetByID(ctx context.Context, id int64) (*db.EnergyReading, error)
	// Update changes the patched columns and always refreshes updated_at.
	// It reports false when the row does not exist.
	Update(ctx context.Context, id int64, patch db.ReadingPatch) (bool, error)
	// Delete reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)
	// Query returns one page of matching rows and the total match count.
	Query(ctx context.Context, q ReadingQuery) (*ReadingPage, error)
}

// AuditStore is the append-only audit table
type AuditStore interface {
	// InsertAudit assigns ID, CreatedAt and UpdatedAt on entry.
	InsertAudit(ctx context.Context, entry *db.AuditLogEntry) error
	// RecentAudit returns entries newest first.
	RecentAudit(ctx context.Context, limit int) ([]db.AuditLogEntry, error)
}

// Store is the storage context shared by the Record Store and Audit Log
type Store interface {
	ReadingStore
	AuditStore

	// InitSchema creates tables and indexes if absent. Safe on every start.
	InitSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver. The schema is not
// initialized.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteRepository(conn), nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
