// Package events publishes the outcome of every 2D-DOC parse and consumes
// asynchronous parse requests.
package events

import (
	"context"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/messaging"
)

// Publisher publishes document events. A nil *Publisher drops them, which is
// how the service runs without RabbitMQ.
type Publisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewPublisher returns a publisher on the connection's twoddoc exchange
func NewPublisher(rmq *messaging.RabbitMQ, source string, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, source, log)
	if err != nil {
		return nil, err
	}
	return NewPublisherWith(publisher, log), nil
}

// NewPublisherWith wraps any event publisher, e.g. testutil.MockPublisher
func NewPublisherWith(publisher messaging.EventPublisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    log.WithComponent("events"),
	}
}

// PublishDocumentParsed announces a parsed document. Only field identifiers
// leave the service, never their values.
func (p *Publisher) PublishDocumentParsed(ctx context.Context, requestID string, doc *domain.Document) {
	if p == nil {
		return
	}

	fieldIDs := make([]string, len(doc.FieldOrder))
	copy(fieldIDs, doc.FieldOrder)

	data := messaging.DocumentParsedEvent{
		RequestID:      requestID,
		PerimeterID:    doc.Header.PerimeterID,
		DocTypeID:      doc.Header.DocTypeID,
		Category:       string(doc.DocumentType.Category),
		SignatureValid: doc.SignatureValid,
		FieldIDs:       fieldIDs,
	}

	if err := p.publisher.Publish(correlate(ctx, requestID), messaging.EventDocumentParsed, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to publish document parsed event")
	}
}

// PublishDocumentRejected announces a payload that could not be parsed
func (p *Publisher) PublishDocumentRejected(ctx context.Context, requestID string, reason error) {
	if p == nil {
		return
	}

	data := messaging.DocumentRejectedEvent{
		RequestID: requestID,
		Reason:    reason.Error(),
	}

	if err := p.publisher.Publish(correlate(ctx, requestID), messaging.EventDocumentRejected, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to publish document rejected event")
	}
}

// PublishCircuitPrepared announces an assembled circuit input
func (p *Publisher) PublishCircuitPrepared(ctx context.Context, requestID, profile string, idValid, taxesValid bool) {
	if p == nil {
		return
	}

	data := messaging.CircuitPreparedEvent{
		RequestID:           requestID,
		Profile:             profile,
		IDSignatureValid:    idValid,
		TaxesSignatureValid: taxesValid,
	}

	if err := p.publisher.Publish(correlate(ctx, requestID), messaging.EventCircuitPrepared, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to publish circuit prepared event")
	}
}

// correlate defaults the event correlation ID to the request ID. An upstream
// correlation ID, such as one carried by a parse request, is kept.
func correlate(ctx context.Context, requestID string) context.Context {
	if messaging.CorrelationID(ctx) != "" {
		return ctx
	}
	return messaging.WithCorrelationID(ctx, requestID)
}
