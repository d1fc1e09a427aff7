package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes JSON messages to a single topic exchange
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := declareTopicExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishReadingEvent publishes a reading lifecycle event under its routing key
func (p *Publisher) PublishReadingEvent(ctx context.Context, event ReadingEvent) error {
	if err := p.publishJSON(ctx, event.RoutingKey(), "", event); err != nil {
		return err
	}

	p.logger.Debug("published reading event",
		zap.String("routing_key", event.RoutingKey()),
		zap.String("reading_id", event.ReadingID),
		zap.String("sensor_id", event.SensorID),
	)
	return nil
}

// PublishIngest publishes a reading for asynchronous ingestion
func (p *Publisher) PublishIngest(ctx context.Context, routingKey string, msg IngestMessage) error {
	if err := p.publishJSON(ctx, routingKey, msg.RequestID, msg); err != nil {
		return err
	}

	p.logger.Debug("published ingest message",
		zap.String("routing_key", routingKey),
		zap.String("request_id", msg.RequestID),
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
