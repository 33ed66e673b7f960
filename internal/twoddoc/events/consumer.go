package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/messaging"
)

// QueueParseRequests receives twoddoc.parse.requested events
const QueueParseRequests = "twoddoc-service.parse-requests"

// ParseRequests is the queue binding the consumer needs in the topology
var ParseRequests = messaging.QueueBinding{
	Queue:       QueueParseRequests,
	RoutingKeys: []string{messaging.EventParseRequested},
}

// DocumentParser parses a payload and publishes the outcome
type DocumentParser interface {
	ParseDocument(ctx context.Context, requestID, raw string) (*domain.Document, error)
}

// ParseRequestConsumer feeds queued payloads into the parse pipeline
type ParseRequestConsumer struct {
	consumer *messaging.Consumer
	parser   DocumentParser
	logger   *logger.Logger
}

// NewParseRequestConsumer registers the handler on the parse request queue.
// The connection's topology must include ParseRequests.
func NewParseRequestConsumer(rmq *messaging.RabbitMQ, parser DocumentParser, log *logger.Logger) (*ParseRequestConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueParseRequests, log)
	if err != nil {
		return nil, err
	}

	c := NewParseRequestHandler(parser, log)
	c.consumer = consumer
	consumer.RegisterHandler(messaging.EventParseRequested, c.HandleParseRequested)

	return c, nil
}

// NewParseRequestHandler builds the handler without a broker, for tests
func NewParseRequestHandler(parser DocumentParser, log *logger.Logger) *ParseRequestConsumer {
	return &ParseRequestConsumer{
		parser: parser,
		logger: log.WithComponent("parse-requests"),
	}
}

// Start starts consuming messages
func (c *ParseRequestConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleParseRequested parses one queued payload. Unparseable payloads are a
// final outcome, already published as a rejection, so they are acked.
func (c *ParseRequestConsumer) HandleParseRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.ParseRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		c.logger.Warn().Err(err).Str("event_id", event.ID).Msg("dropping malformed parse request")
		return nil
	}

	if data.RequestID == "" {
		data.RequestID = uuid.NewString()
	}

	log := c.logger.WithRequestID(data.RequestID).WithCorrelationID(event.CorrelationID)
	log.Debug().Int("payload_bytes", len(data.Raw)).Msg("received parse request")

	if _, err := c.parser.ParseDocument(ctx, data.RequestID, data.Raw); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug().Err(err).Msg("queued payload rejected")
	}
	return nil
}
