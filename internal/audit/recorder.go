// Package audit records one entry per attempted reading operation and serves
// the most recent entries back.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/repository"
	"go.uber.org/zap"
)

// RecentLimit is the number of entries returned by the audit read path
const RecentLimit = 50

// Entry is an audit record with decoded details
type Entry struct {
	ID        int64
	Op        string
	Duration  float64
	Details   Details
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recorder writes and reads the audit log
type Recorder struct {
	store  repository.AuditStore
	logger *zap.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(store repository.AuditStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Append writes one entry synchronously. Failures are logged and never
// returned; the write is detached from ctx cancellation so an aborted
// request still leaves its audit record.
func (r *Recorder) Append(ctx context.Context, op string, elapsed time.Duration, details Details) {
	entry := &db.AuditLogEntry{
		Op:       op,
		Duration: Milliseconds(elapsed),
	}

	payload, err := EncodeDetails(details)
	if err != nil {
		r.logger.Warn("failed to encode audit details, storing entry without details",
			zap.String("op", op),
			zap.Error(err),
		)
	} else {
		entry.Details = payload
	}

	if err := r.store.InsertAudit(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Error("failed to write audit entry",
			zap.String("op", op),
			zap.Float64("duration_ms", entry.Duration),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("audit entry written",
		zap.Int64("audit_id", entry.ID),
		zap.String("op", op),
		zap.Float64("duration_ms", entry.Duration),
	)
}

// Recent returns up to limit entries, newest first. Payloads that cannot be
// decoded are returned as RawDetails.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}

	rows, err := r.store.RecentAudit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit entries: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		details, err := DecodeDetails(row.Op, row.Details)
		if err != nil {
			r.logger.Warn("undecodable audit details",
				zap.Int64("audit_id", row.ID),
				zap.String("op", row.Op),
				zap.Error(err),
			)
			details = RawDetails(row.Details)
		}

		entries = append(entries, Entry{
			ID:        row.ID,
			Op:        row.Op,
			Duration:  row.Duration,
			Details:   details,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return entries, nil
}

// Milliseconds converts d to fractional milliseconds, never negative
func Milliseconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
