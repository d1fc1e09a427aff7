package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/logging"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/mq"
	"go.uber.org/zap"
)

// IngestProcessor creates readings delivered over the broker. Each message
// goes through the same create path as HTTP, so it is validated and audited
// the same way.
type IngestProcessor struct {
	energy *EnergyService
	logger *zap.Logger
}

// NewIngestProcessor creates a new ingest processor
func NewIngestProcessor(energy *EnergyService, logger *zap.Logger) *IngestProcessor {
	return &IngestProcessor{energy: energy, logger: logger}
}

// ProcessMessage handles one ingest message. A returned error sends the
// message to the dead-letter queue.
func (p *IngestProcessor) ProcessMessage(ctx context.Context, body []byte) error {
	var msg mq.IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if len(msg.Reading) == 0 || string(bytes.TrimSpace(msg.Reading)) == "null" {
		return errors.New("message has no reading")
	}

	if msg.RequestID != "" {
		ctx = logging.ContextWithRequestID(ctx, msg.RequestID)
	}
	reqLogger := logging.FromContext(ctx, p.logger)
	reqLogger.Debug("processing ingest message",
		zap.String("source", msg.Source),
		zap.Time("received_at", msg.ReceivedAt),
	)

	row, err := p.energy.Create(ctx, msg.Reading)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	reqLogger.Info("message processed successfully", zap.Int64("reading_id", row.ID))
	return nil
}
