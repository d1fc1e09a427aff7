package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// PostgresRepository implements Store on PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRepository creates a new repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, now: db.Now}
}

// InitSchema creates the reading and audit tables and their indexes
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS energy_data (
			id BIGSERIAL PRIMARY KEY,
			sensor_id TEXT NOT NULL,
			power_output DOUBLE PRECISION NOT NULL,
			temperature DOUBLE PRECISION,
			location TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_created_at ON energy_data(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_sensor_id ON energy_data(sensor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_location ON energy_data(location)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_power_output ON energy_data(power_output)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_temperature ON energy_data(temperature)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			op TEXT NOT NULL,
			duration DOUBLE PRECISION NOT NULL,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_op ON audit_logs(op)`,
	}

	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Insert inserts a reading and returns the stored row
func (r *PostgresRepository) Insert(ctx context.Context, reading db.NewReading) (*db.EnergyReading, error) {
	query := `
		INSERT INTO energy_data (sensor_id, power_output, temperature, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + readingColumns

	stored, err := scanPostgresReading(r.pool.QueryRow(ctx, query,
		reading.SensorID,
		reading.PowerOutput,
		reading.Temperature,
		reading.Location,
		r.now(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert reading: %w", err)
	}
	return stored, nil
}

// GetByID returns the reading or nil when absent
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*db.EnergyReading, error) {
	query := `SELECT ` + readingColumns + ` FROM energy_data WHERE id = $1`

	reading, err := scanPostgresReading(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

// Update applies a partial update and refreshes updated_at
func (r *PostgresRepository) Update(ctx context.Context, id int64, patch db.ReadingPatch) (bool, error) {
	sets, args := patchAssignments(patch, dollarPlaceholder)
	args = append(args, r.now())
	sets = append(sets, "updated_at = "+dollarPlaceholder(len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE energy_data SET %s WHERE id = %s", strings.Join(sets, ", "), dollarPlaceholder(len(args)))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update reading: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the reading
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM energy_data WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reading: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Query runs the page and count queries concurrently
func (r *PostgresRepository) Query(ctx context.Context, q ReadingQuery) (*ReadingPage, error) {
	q = q.Normalize()
	pageSQL, pageArgs, countSQL, countArgs := buildListSQL(q, dollarPlaceholder)

	page := &ReadingPage{Rows: []db.EnergyReading{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := r.pool.Query(gctx, pageSQL, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to query readings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			reading, err := scanPostgresReading(rows)
			if err != nil {
				return fmt.Errorf("failed to scan reading: %w", err)
			}
			page.Rows = append(page.Rows, *reading)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows iteration error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, countSQL, countArgs...).Scan(&page.Total); err != nil {
			return fmt.Errorf("failed to count readings: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

// InsertAudit appends an audit entry
func (r *PostgresRepository) InsertAudit(ctx context.Context, entry *db.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (op, duration, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`

	now := r.now()

	var details any
	if entry.Details != nil {
		details = string(entry.Details)
	}

	if err := r.pool.QueryRow(ctx, query, entry.Op, entry.Duration, details, now).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// RecentAudit returns the most recent audit entries, newest first
func (r *PostgresRepository) RecentAudit(ctx context.Context, limit int) ([]db.AuditLogEntry, error) {
	query := `
		SELECT id, op, duration, details::text, created_at, updated_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := []db.AuditLogEntry{}
	for rows.Next() {
		var (
			entry   db.AuditLogEntry
			details *string
		)
		if err := rows.Scan(&entry.ID, &entry.Op, &entry.Duration, &details, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if details != nil {
			entry.Details = []byte(*details)
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entry.UpdatedAt = entry.UpdatedAt.UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

func scanPostgresReading(row pgx.Row) (*db.EnergyReading, error) {
	var reading db.EnergyReading
	if err := row.Scan(
		&reading.ID,
		&reading.SensorID,
		&reading.PowerOutput,
		&reading.Temperature,
		&reading.Location,
		&reading.CreatedAt,
		&reading.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reading.CreatedAt = reading.CreatedAt.UTC()
	reading.UpdatedAt = reading.UpdatedAt.UTC()
	return &reading, nil
}
