package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

type recordingAck struct {
	acked    int
	nacked   int
	requeued bool
	rejected int
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	a.rejected++
	return nil
}

func delivery(t *testing.T, ack *recordingAck, eventType string, data any) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func newTestConsumer() *Consumer {
	return &Consumer{queueName: "test", handlers: map[string]MessageHandler{}, logger: logger.Nop()}
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(EventParseRequested, "tdd-service", "corr-9", ParseRequestedEvent{RequestID: "r1", Raw: "DC03"})
	require.NoError(t, err)

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)
	assert.Equal(t, EventParseRequested, event.Type)
	assert.Equal(t, "corr-9", event.CorrelationID)

	var data ParseRequestedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "DC03", data.Raw)
}

func TestHandleMessage(t *testing.T) {
	failing := errors.New("broker hiccup")

	tests := []struct {
		name        string
		handlerErr  error
		eventType   string
		body        []byte
		redelivered bool
		xDeath      int64
		want        recordingAck
	}{
		{name: "handled", eventType: EventParseRequested, want: recordingAck{acked: 1}},
		{name: "no handler", eventType: "twoddoc.unknown", want: recordingAck{acked: 1}},
		{name: "malformed body", body: []byte("{"), want: recordingAck{rejected: 1}},
		{name: "first failure requeues", eventType: EventParseRequested, handlerErr: failing, want: recordingAck{nacked: 1, requeued: true}},
		{name: "redelivered failure dead-letters", eventType: EventParseRequested, handlerErr: failing, redelivered: true, want: recordingAck{rejected: 1}},
		{name: "x-death limit dead-letters", eventType: EventParseRequested, handlerErr: failing, xDeath: MaxDeliveries, want: recordingAck{rejected: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer()
			var gotCorrelation string
			c.RegisterHandler(EventParseRequested, func(ctx context.Context, event *Event) error {
				gotCorrelation = CorrelationID(ctx)
				return tt.handlerErr
			})

			ack := &recordingAck{}
			msg := delivery(t, ack, tt.eventType, ParseRequestedEvent{Raw: "DC03"})
			if tt.body != nil {
				msg.Body = tt.body
			}
			msg.Redelivered = tt.redelivered
			if tt.xDeath > 0 {
				msg.Headers = amqp.Table{"x-death": []interface{}{amqp.Table{"count": tt.xDeath}}}
			}

			c.handleMessage(context.Background(), msg)

			assert.Equal(t, tt.want, *ack)
			if tt.eventType == EventParseRequested && tt.body == nil {
				assert.Equal(t, "corr-1", gotCorrelation)
			}
		})
	}
}
