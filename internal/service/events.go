package service

import (
	"context"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/anomaly"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/logging"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/mq"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/repository"
	"go.uber.org/zap"
)

// historySize is how many earlier readings of a sensor form the anomaly
// baseline
const historySize = 10

// publish sends a lifecycle event for row. It runs after the audit write so
// the response never depends on the broker.
func (s *EnergyService) publish(ctx context.Context, eventType string, row *db.EnergyReading, assess bool) {
	if s.publisher == nil {
		return
	}
	logger := logging.FromContext(ctx, s.logger)

	event := mq.ReadingEvent{
		Type:       eventType,
		ReadingID:  formatID(row.ID),
		SensorID:   row.SensorID,
		OccurredAt: db.FormatTimestamp(db.Now()),
	}
	if eventType != mq.EventDeleted {
		power := row.PowerOutput
		event.PowerOutput = &power
		event.Temperature = row.Temperature
		event.Location = row.Location
	}

	if assess && s.detector != nil {
		assessment, err := s.assess(ctx, row)
		if err != nil {
			logger.Warn("failed to get historical readings for anomaly detection",
				zap.String("sensor_id", row.SensorID),
				zap.Error(err),
			)
		} else {
			event.Anomaly = &assessment
			if assessment.Anomalous {
				logger.Info("anomaly detected",
					zap.Int64("reading_id", row.ID),
					zap.String("sensor_id", row.SensorID),
					zap.Float64("power_output", row.PowerOutput),
					zap.String("reason", assessment.Reason),
				)
			}
		}
	}

	if err := s.publisher.PublishReadingEvent(context.WithoutCancel(ctx), event); err != nil {
		logger.Error("failed to publish event",
			zap.String("routing_key", event.RoutingKey()),
			zap.String("reading_id", event.ReadingID),
			zap.Error(err),
		)
	}
}

// assess compares row's power output with the sensor's most recent other
// readings
func (s *EnergyService) assess(ctx context.Context, row *db.EnergyReading) (anomaly.Assessment, error) {
	sensorID := row.SensorID
	page, err := s.store.Query(ctx, repository.ReadingQuery{
		Filter: repository.ReadingFilter{SensorID: &sensorID},
		SortBy: "createdAt",
		Order:  repository.OrderDesc,
		Page:   1,
		Limit:  historySize + 1,
	}.Normalize())
	if err != nil {
		return anomaly.Assessment{}, err
	}

	history := make([]float64, 0, historySize)
	for _, r := range page.Rows {
		if r.ID == row.ID {
			continue
		}
		if len(history) == historySize {
			break
		}
		history = append(history, r.PowerOutput)
	}

	return s.detector.Assess(row.PowerOutput, history), nil
}
