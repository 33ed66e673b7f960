package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inbound
	EventParseRequested = "twoddoc.parse.requested"

	// Outcome of every parse, HTTP or AMQP
	EventDocumentParsed   = "twoddoc.document.parsed"
	EventDocumentRejected = "twoddoc.document.rejected"

	// Circuit input preparation
	EventCircuitPrepared = "twoddoc.circuit.prepared"
)

// Exchange names
const (
	ExchangeTwoDDocEvents = "twoddoc.events"
	DeadLetterExchange    = "twoddoc.dlx"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ParseRequestedEvent asks the service to parse a payload asynchronously.
// RequestID is echoed in the outcome event; the service assigns one when empty.
type ParseRequestedEvent struct {
	RequestID string `json:"request_id"`
	Raw       string `json:"raw"`
}

// DocumentParsedEvent is published after a successful parse. It never carries
// field values, only their identifiers.
type DocumentParsedEvent struct {
	RequestID      string   `json:"request_id"`
	PerimeterID    string   `json:"perimeter_id"`
	DocTypeID      string   `json:"doc_type_id"`
	Category       string   `json:"category"`
	SignatureValid bool     `json:"signature_valid"`
	FieldIDs       []string `json:"field_ids"`
}

// DocumentRejectedEvent is published when a payload fails to parse
type DocumentRejectedEvent struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

// CircuitPreparedEvent is published when a circuit input was assembled
type CircuitPreparedEvent struct {
	RequestID           string `json:"request_id"`
	Profile             string `json:"profile"`
	IDSignatureValid    bool   `json:"id_signature_valid"`
	TaxesSignatureValid bool   `json:"taxes_signature_valid"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
