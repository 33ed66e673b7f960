package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

// MaxDeliveries is how many dead-letter round trips a message gets before it
// stays in the dead letter queue.
const MaxDeliveries = 3

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer creates a consumer for one of the topology's queues. The queue
// and its bindings are declared by the connection.
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if !rmq.Topology().HasQueue(queueName) {
		return nil, fmt.Errorf("queue %s is not part of the declared topology", queueName)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue. When the broker closes the
// delivery channel the consumer reconnects and resumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.consume()
	if err != nil {
		return err
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if ok {
					c.handleMessage(ctx, msg)
					continue
				}
				if ctx.Err() != nil {
					return
				}

				c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed, reconnecting")
				if err := c.rmq.Reconnect(ctx); err != nil {
					c.logger.Error().Err(err).Str("queue", c.queueName).Msg("consumer gave up reconnecting")
					return
				}
				if msgs, err = c.consume(); err != nil {
					c.logger.Error().Err(err).Str("queue", c.queueName).Msg("failed to resume consuming")
					return
				}
				c.logger.Info().Str("queue", c.queueName).Msg("consumer resumed")
			}
		}
	}()

	return nil
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		msg.Reject(false)
		return
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		msg.Ack(false)
		return
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		// A bare requeue never increments x-death, so a second failure goes
		// to the dead letter queue.
		retryCount := getRetryCount(msg)
		if retryCount >= MaxDeliveries || msg.Redelivered {
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("retry_count", retryCount).
				Bool("redelivered", msg.Redelivered).
				Msg("giving up on event, sending to DLQ")
			msg.Reject(false)
			return
		}

		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}

func getRetryCount(msg amqp.Delivery) int {
	if msg.Headers == nil {
		return 0
	}

	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			if d, ok := death.(amqp.Table); ok {
				if count, ok := d["count"].(int64); ok {
					return int(count)
				}
			}
		}
	}

	return 0
}
