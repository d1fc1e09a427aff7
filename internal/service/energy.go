package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/anomaly"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/audit"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/logging"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/mq"
	apperrors "github.com/RounakBanerji/Twinenergy-Demo/internal/pkg/errors"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/repository"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/validator"
	"go.uber.org/zap"
)

// EventPublisher receives reading lifecycle events. Publishing happens after
// the operation is stored and audited; failures are logged only.
type EventPublisher interface {
	PublishReadingEvent(ctx context.Context, event mq.ReadingEvent) error
}

// ListResult is one page of readings plus the effective query
type ListResult struct {
	Rows       []db.EnergyReading
	Page       int
	Limit      int
	Total      int64
	TotalPages int
	SortBy     string
	Order      string
	Filters    []string
}

// EnergyService validates reading operations, runs exactly one store
// operation per call and writes exactly one audit entry for its outcome.
type EnergyService struct {
	store     repository.ReadingStore
	recorder  *audit.Recorder
	validator *validator.Validator
	detector  *anomaly.Detector
	publisher EventPublisher
	logger    *zap.Logger
}

// NewEnergyService creates a new energy service. detector and publisher may
// be nil.
func NewEnergyService(
	store repository.ReadingStore,
	recorder *audit.Recorder,
	validator *validator.Validator,
	detector *anomaly.Detector,
	publisher EventPublisher,
	logger *zap.Logger,
) *EnergyService {
	return &EnergyService{
		store:     store,
		recorder:  recorder,
		validator: validator,
		detector:  detector,
		publisher: publisher,
		logger:    logger,
	}
}

// Create validates body and inserts a reading. Duration covers the whole
// call up to the stored row being read back.
func (s *EnergyService) Create(ctx context.Context, body []byte) (*db.EnergyReading, error) {
	return s.CreateBody(ctx, body, nil)
}

// CreateBody is Create for a body that may have failed to read. A non-nil
// readErr is audited as CREATE_ERROR in place of validation.
func (s *EnergyService) CreateBody(ctx context.Context, body []byte, readErr error) (*db.EnergyReading, error) {
	start := time.Now()

	if readErr != nil {
		return nil, s.fail(ctx, audit.OpCreateError, start, "", readErr)
	}

	payload, err := validator.ParsePayload(body)
	if err != nil {
		return nil, s.fail(ctx, audit.OpCreateError, start, "", err)
	}

	reading, err := s.validator.ValidateCreate(payload)
	if err != nil {
		return nil, s.fail(ctx, audit.OpCreateError, start, "", err)
	}

	row, err := s.store.Insert(ctx, reading)
	if err != nil {
		return nil, s.fail(ctx, audit.OpCreateError, start, "", apperrors.StorageError(err))
	}

	s.recorder.Append(ctx, audit.OpCreate, time.Since(start), audit.CreateDetails{
		ID:   formatID(row.ID),
		Body: compactJSON(body),
	})

	logging.FromContext(ctx, s.logger).Info("reading created",
		zap.Int64("reading_id", row.ID),
		zap.String("sensor_id", row.SensorID),
	)

	s.publish(ctx, mq.EventCreated, row, true)
	return row, nil
}

// List returns one filtered, sorted page. Duration covers the storage query
// only.
func (s *EnergyService) List(ctx context.Context, params url.Values) (*ListResult, error) {
	q := ParseListQuery(params)

	start := time.Now()
	page, err := s.store.Query(ctx, q)
	elapsed := time.Since(start)
	if err != nil {
		appErr := apperrors.StorageError(err)
		s.recorder.Append(ctx, audit.OpReadListError, elapsed, audit.ErrorDetails{Error: appErr.Message})
		return nil, appErr
	}

	s.recorder.Append(ctx, audit.OpReadList, elapsed, audit.ListDetails{
		Query: flattenQuery(params),
		Count: len(page.Rows),
		Total: page.Total,
	})

	return &ListResult{
		Rows:       page.Rows,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      page.Total,
		TotalPages: repository.TotalPages(page.Total, q.Limit),
		SortBy:     q.SortBy,
		Order:      q.Order,
		Filters:    q.Filter.Clauses(),
	}, nil
}

// Update applies a partial update. Existence is checked and audited before
// the body is validated or the row is touched.
func (s *EnergyService) Update(ctx context.Context, rawID string, body []byte) (*db.EnergyReading, error) {
	return s.UpdateBody(ctx, rawID, body, nil)
}

// UpdateBody is Update for a body that may have failed to read. readErr is
// reported where body validation would fail, after the existence check.
func (s *EnergyService) UpdateBody(ctx context.Context, rawID string, body []byte, readErr error) (*db.EnergyReading, error) {
	start := time.Now()

	id, err := validator.ParseID(rawID)
	if err != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, rawID, err)
	}
	idText := formatID(id)

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, idText, apperrors.StorageError(err))
	}
	if existing == nil {
		return nil, s.notFound(ctx, audit.OpUpdateNotFound, start, idText)
	}

	if readErr != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, idText, readErr)
	}
	payload, err := validator.ParsePayload(body)
	if err != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, idText, err)
	}
	patch, err := s.validator.ValidatePatch(payload)
	if err != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, idText, err)
	}

	found, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, idText, apperrors.StorageError(err))
	}
	if !found {
		// deleted between the existence check and the write
		return nil, s.notFound(ctx, audit.OpUpdateNotFound, start, idText)
	}

	updated, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, audit.OpUpdateError, start, idText, apperrors.StorageError(err))
	}
	if updated == nil {
		return nil, s.notFound(ctx, audit.OpUpdateNotFound, start, idText)
	}

	s.recorder.Append(ctx, audit.OpUpdate, time.Since(start), audit.RecordDetails{ID: idText})

	logging.FromContext(ctx, s.logger).Info("reading updated", zap.Int64("reading_id", id))

	s.publish(ctx, mq.EventUpdated, updated, patch.PowerOutput != nil)
	return updated, nil
}

// Delete removes a reading after checking that it exists
func (s *EnergyService) Delete(ctx context.Context, rawID string) error {
	start := time.Now()

	id, err := validator.ParseID(rawID)
	if err != nil {
		return s.fail(ctx, audit.OpDeleteError, start, rawID, err)
	}
	idText := formatID(id)

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return s.fail(ctx, audit.OpDeleteError, start, idText, apperrors.StorageError(err))
	}
	if existing == nil {
		return s.notFound(ctx, audit.OpDeleteNotFound, start, idText)
	}

	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.fail(ctx, audit.OpDeleteError, start, idText, apperrors.StorageError(err))
	}
	if !found {
		return s.notFound(ctx, audit.OpDeleteNotFound, start, idText)
	}

	s.recorder.Append(ctx, audit.OpDelete, time.Since(start), audit.RecordDetails{ID: idText})

	logging.FromContext(ctx, s.logger).Info("reading deleted", zap.Int64("reading_id", id))

	s.publish(ctx, mq.EventDeleted, existing, false)
	return nil
}

// AuditLogs returns the most recent audit entries. Reading the log is not
// itself audited.
func (s *EnergyService) AuditLogs(ctx context.Context) ([]audit.Entry, error) {
	entries, err := s.recorder.Recent(ctx, audit.RecentLimit)
	if err != nil {
		return nil, apperrors.StorageError(err)
	}
	return entries, nil
}

// fail audits op with an error payload and returns err as an AppError
func (s *EnergyService) fail(ctx context.Context, op string, start time.Time, id string, err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.StorageError(err)
	}

	s.recorder.Append(ctx, op, time.Since(start), audit.ErrorDetails{ID: id, Error: appErr.Message})

	logging.FromContext(ctx, s.logger).Warn("reading operation failed",
		zap.String("op", op),
		zap.String("reading_id", id),
		zap.String("code", appErr.Code),
		zap.Error(appErr),
	)
	return appErr
}

func (s *EnergyService) notFound(ctx context.Context, op string, start time.Time, id string) error {
	s.recorder.Append(ctx, op, time.Since(start), audit.RecordDetails{ID: id})
	return apperrors.NotFoundError()
}

// ParseListQuery turns list query parameters into a normalized store query.
// Empty or unparseable filter values are treated as absent.
func ParseListQuery(params url.Values) repository.ReadingQuery {
	page, limit := repository.ParsePagination(params.Get("page"), params.Get("limit"))

	q := repository.ReadingQuery{
		Filter: repository.ReadingFilter{
			Location: textParam(params, "location"),
			SensorID: textParam(params, "sensorId"),
			MinPower: floatParam(params, "minPower"),
			MaxPower: floatParam(params, "maxPower"),
			MinTemp:  floatParam(params, "minTemp"),
			MaxTemp:  floatParam(params, "maxTemp"),
		},
		SortBy: params.Get("sortBy"),
		Order:  params.Get("order"),
		Page:   page,
		Limit:  limit,
	}
	return q.Normalize()
}

func textParam(params url.Values, key string) *string {
	v := params.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

func floatParam(params url.Values, key string) *float64 {
	v := strings.TrimSpace(params.Get(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// flattenQuery keeps the first value of each parameter
func flattenQuery(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for key, values := range params {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// compactJSON returns body as compact JSON, or nil if it is not valid JSON
func compactJSON(body []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil
	}
	return json.RawMessage(buf.Bytes())
}
