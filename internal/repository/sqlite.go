package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"golang.org/x/sync/errgroup"
)

// SQLiteRepository implements Store on SQLite
type SQLiteRepository struct {
	conn *sql.DB
	now  func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository
func NewSQLiteRepository(conn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{conn: conn, now: db.Now}
}

// InitSchema creates the reading and audit tables and their indexes
func (r *SQLiteRepository) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS energy_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor_id TEXT NOT NULL,
			power_output REAL NOT NULL,
			temperature REAL,
			location TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_created_at ON energy_data(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_sensor_id ON energy_data(sensor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_location ON energy_data(location)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_power_output ON energy_data(power_output)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_temperature ON energy_data(temperature)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			op TEXT NOT NULL,
			duration REAL NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_op ON audit_logs(op)`,
	}

	for _, stmt := range stmts {
		if _, err := r.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the database is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.conn.PingContext(ctx)
}

// Close releases the database handle
func (r *SQLiteRepository) Close() error {
	return r.conn.Close()
}

// Insert inserts a reading and reads it back
func (r *SQLiteRepository) Insert(ctx context.Context, reading db.NewReading) (*db.EnergyReading, error) {
	query := `
		INSERT INTO energy_data (sensor_id, power_output, temperature, location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	ts := db.FormatTimestamp(r.now())
	res, err := r.conn.ExecContext(ctx, query,
		reading.SensorID,
		reading.PowerOutput,
		reading.Temperature,
		reading.Location,
		ts,
		ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reading: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("inserted reading %d not found", id)
	}
	return stored, nil
}

// GetByID returns the reading or nil when absent
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*db.EnergyReading, error) {
	query := `SELECT ` + readingColumns + ` FROM energy_data WHERE id = ?`

	reading, err := scanSQLiteReading(r.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

// Update applies a partial update and refreshes updated_at
func (r *SQLiteRepository) Update(ctx context.Context, id int64, patch db.ReadingPatch) (bool, error) {
	sets, args := patchAssignments(patch, questionPlaceholder)
	sets = append(sets, "updated_at = ?")
	args = append(args, db.FormatTimestamp(r.now()), id)

	query := fmt.Sprintf("UPDATE energy_data SET %s WHERE id = ?", strings.Join(sets, ", "))

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes the reading
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM energy_data WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Query runs the page and count queries for a filtered list
func (r *SQLiteRepository) Query(ctx context.Context, q ReadingQuery) (*ReadingPage, error) {
	q = q.Normalize()
	pageSQL, pageArgs, countSQL, countArgs := buildListSQL(q, questionPlaceholder)

	page := &ReadingPage{Rows: []db.EnergyReading{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := r.conn.QueryContext(gctx, pageSQL, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to query readings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			reading, err := scanSQLiteReading(rows)
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
		if err := r.conn.QueryRowContext(gctx, countSQL, countArgs...).Scan(&page.Total); err != nil {
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
func (r *SQLiteRepository) InsertAudit(ctx context.Context, entry *db.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (op, duration, details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := r.now()
	ts := db.FormatTimestamp(now)

	var details any
	if entry.Details != nil {
		details = string(entry.Details)
	}

	res, err := r.conn.ExecContext(ctx, query, entry.Op, entry.Duration, details, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read audit id: %w", err)
	}

	entry.ID = id
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// RecentAudit returns the most recent audit entries, newest first
func (r *SQLiteRepository) RecentAudit(ctx context.Context, limit int) ([]db.AuditLogEntry, error) {
	query := `
		SELECT id, op, duration, details, created_at, updated_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := []db.AuditLogEntry{}
	for rows.Next() {
		var (
			entry                db.AuditLogEntry
			details              sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Op, &entry.Duration, &details, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if details.Valid {
			entry.Details = []byte(details.String)
		}
		if entry.CreatedAt, err = db.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse audit created_at: %w", err)
		}
		if entry.UpdatedAt, err = db.ParseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse audit updated_at: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteReading(row rowScanner) (*db.EnergyReading, error) {
	var (
		reading              db.EnergyReading
		temperature          sql.NullFloat64
		location             sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(
		&reading.ID,
		&reading.SensorID,
		&reading.PowerOutput,
		&temperature,
		&location,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if temperature.Valid {
		reading.Temperature = &temperature.Float64
	}
	if location.Valid {
		reading.Location = &location.String
	}

	var err error
	if reading.CreatedAt, err = db.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reading.UpdatedAt, err = db.ParseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &reading, nil
}

// patchAssignments renders SET assignments for the patched columns
func patchAssignments(patch db.ReadingPatch, ph placeholderFunc) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", column, ph(len(args))))
	}

	if patch.SensorID != nil {
		add("sensor_id", *patch.SensorID)
	}
	if patch.PowerOutput != nil {
		add("power_output", *patch.PowerOutput)
	}
	if patch.Temperature.Set {
		add("temperature", patch.Temperature.Value)
	}
	if patch.Location.Set {
		add("location", patch.Location.Value)
	}
	return sets, args
}
