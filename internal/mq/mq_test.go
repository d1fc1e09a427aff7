package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/anomaly"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingAck captures how a delivery was settled
type recordingAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestConsumer_HandleDelivery(t *testing.T) {
	var seen [][]byte
	fail := false
	c := &Consumer{
		queue:  "ingest",
		logger: zap.NewNop(),
		handler: func(ctx context.Context, body []byte) error {
			seen = append(seen, body)
			if fail {
				return errors.New("bad reading")
			}
			return nil
		},
	}

	t.Run("success acks", func(t *testing.T) {
		ack := &recordingAck{}
		c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(`{"a":1}`)})
		assert.Equal(t, 1, ack.acked)
		assert.Equal(t, 0, ack.nacked)
	})

	t.Run("failure nacks without requeue", func(t *testing.T) {
		fail = true
		ack := &recordingAck{}
		c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(`{}`)})
		assert.Equal(t, 0, ack.acked)
		assert.Equal(t, 1, ack.nacked)
		assert.False(t, ack.requeue)
	})

	assert.Len(t, seen, 2)
}

func TestConsumer_RunStopsWhenChannelCloses(t *testing.T) {
	handled := 0
	c := &Consumer{
		logger: zap.NewNop(),
		handler: func(context.Context, []byte) error {
			handled++
			return nil
		},
	}

	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: &recordingAck{}}
	msgs <- amqp.Delivery{Acknowledger: &recordingAck{}}
	close(msgs)

	c.run(context.Background(), msgs)
	assert.Equal(t, 2, handled)
}

func TestReadingEvent_RoutingKeyAndJSON(t *testing.T) {
	power := 12.5
	event := ReadingEvent{
		Type:        EventCreated,
		ReadingID:   "7",
		SensorID:    "s1",
		PowerOutput: &power,
		OccurredAt:  "2026-01-02T03:04:05.000Z",
		Anomaly:     &anomaly.Assessment{Anomalous: true, Reason: "negative power output"},
	}
	assert.Equal(t, "energy.reading.created", event.RoutingKey())

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"created",
		"reading_id":"7",
		"sensor_id":"s1",
		"power_output":12.5,
		"occurred_at":"2026-01-02T03:04:05.000Z",
		"anomaly":{"anomalous":true,"reason":"negative power output","samples":0}
	}`, string(body))
}

func TestIngestMessage_Decode(t *testing.T) {
	var msg IngestMessage
	err := json.Unmarshal([]byte(`{"request_id":"r-1","received_at":"2026-01-02T03:04:05Z","reading":{"sensorId":"s1","powerOutput":3}}`), &msg)
	require.NoError(t, err)
	assert.Equal(t, "r-1", msg.RequestID)
	assert.JSONEq(t, `{"sensorId":"s1","powerOutput":3}`, string(msg.Reading))
}
