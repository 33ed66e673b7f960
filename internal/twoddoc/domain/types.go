package domain

import "errors"

// Fatal parse errors. Everything else is recovered inside the pipeline.
var (
	ErrMalformedHeader         = errors.New("malformed header")
	ErrUnsupportedVersion      = errors.New("unsupported version")
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
)

// Separator bytes used by the 2D-DOC message layout
const (
	GS byte = 0x1D // group separator, ends a variable field
	RS byte = 0x1E // record separator
	FS byte = 0x1F // field separator, message/signature boundary
	US byte = 0x1C // unit separator, message/signature boundary (version 4)
)

// DocumentMarker opens every 2D-DOC payload
const DocumentMarker = "DC"

// EndOfMessage stops the tokenizer when found in place of a field ID
const EndOfMessage = "S6"

// Header holds the metadata found at the front of a payload
type Header struct {
	Version       int    `json:"version"`
	HeaderLength  int    `json:"header_length"`
	Binary        bool   `json:"binary"`
	CAID          string `json:"ca_id"`
	CertID        string `json:"cert_id"`
	IssuanceDate  string `json:"issuance_date"`
	SignatureDate string `json:"signature_date"`
	DocTypeID     string `json:"doc_type_id"`
	PerimeterID   string `json:"perimeter_id"`
	CountryID     string `json:"country_id"`
}

// FieldType is the semantic type of a catalog field
type FieldType string

const (
	FieldTypeString        FieldType = "string"
	FieldTypeDate          FieldType = "date"
	FieldTypeFormattedDate FieldType = "formatted_date"
	FieldTypeYear          FieldType = "year"
	FieldTypeInteger       FieldType = "integer"
	FieldTypeAmount        FieldType = "amount"
	FieldTypePhone         FieldType = "phone"
)

// LengthType tells the tokenizer how to find the end of a value
type LengthType string

const (
	LengthFixed    LengthType = "fixed"
	LengthVariable LengthType = "variable"
)

// FieldDefinition is an immutable catalog entry
type FieldDefinition struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       FieldType  `json:"type"`
	LengthType LengthType `json:"length_type"`
	Length     int        `json:"length,omitempty"`
	MaxLength  int        `json:"max_length,omitempty"`
}

// Bound returns the number of bytes a value may occupy, 0 meaning unbounded
func (d FieldDefinition) Bound() int {
	if d.LengthType == LengthFixed {
		return d.Length
	}
	return d.MaxLength
}

// RawField is a value as cut out of the message zone, together with the
// result of the cleaning pass that decided whether it is kept
type RawField struct {
	FieldID   string
	Value     string
	Cleaned   string
	Separator string
}

// ParsedField is the externally visible representation of a field.
// Raw keeps the cleaned value before type formatting; the circuit encoder works on it.
type ParsedField struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Value     string    `json:"value"`
	Raw       string    `json:"raw"`
	Separator string    `json:"separator,omitempty"`
}

// Category groups document types by issuing domain
type Category string

const (
	CategoryProofOfAddress Category = "Justificatif"
	CategoryTaxes          Category = "IMPOTS"
	CategoryIdentity       Category = "IDENTITE"
	CategoryResidence      Category = "RESIDENCE"
	CategoryHealth         Category = "SANTE"
	CategoryUnknown        Category = "INCONNU"
)

// DocumentType is a registry entry for a (perimeter, doc type) pair
type DocumentType struct {
	PerimeterID string   `json:"perimeter_id"`
	DocTypeID   string   `json:"doc_type_id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
}

// Supported reports whether the pair was found in the registry
func (t DocumentType) Supported() bool {
	return t.Category != CategoryUnknown
}

// Document is the result of one parse. It is not modified after being returned.
type Document struct {
	Header         Header                 `json:"header"`
	DocumentType   DocumentType           `json:"document_type"`
	Fields         map[string]ParsedField `json:"fields"`
	FieldOrder     []string               `json:"field_order"`
	Signature      string                 `json:"signature"`
	SignatureValid bool                   `json:"signature_valid"`
	Annex          map[string]ParsedField `json:"annex,omitempty"`
	MessageData    string                 `json:"message_data"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// Field returns a parsed field by ID
func (d *Document) Field(id string) (ParsedField, bool) {
	f, ok := d.Fields[id]
	return f, ok
}

// OrderedFields returns the fields in message order
func (d *Document) OrderedFields() []ParsedField {
	out := make([]ParsedField, 0, len(d.FieldOrder))
	for _, id := range d.FieldOrder {
		out = append(out, d.Fields[id])
	}
	return out
}
