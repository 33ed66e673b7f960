// Package circuit re-encodes parsed documents into the fixed-width byte
// layout consumed by the proof circuit.
package circuit

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

var (
	ErrFieldTooWide     = errors.New("field value exceeds circuit width")
	ErrInvalidSignature = errors.New("invalid signature")
)

// curveOrder is the order N of the P-256 group
var curveOrder, _ = new(big.Int).SetString("ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551", 16)

var halfOrder = new(big.Int).Rsh(curveOrder, 1)

// FieldData is a zero-padded byte buffer. Bytes are rendered as decimal strings.
type FieldData struct {
	Len     int      `json:"len"`
	Storage []string `json:"storage"`
}

// Field is one encoded document field
type Field struct {
	ID   string    `json:"id"`
	Data FieldData `json:"data"`
}

// Date holds the parts of an ISO date
type Date struct {
	Day   string `json:"day"`
	Month string `json:"month"`
	Year  string `json:"year"`
}

// Header is the header block of a circuit document
type Header struct {
	CAID        string `json:"ca_id"`
	CertID      string `json:"cert_id"`
	CountryID   string `json:"country_id"`
	DocTypeID   string `json:"doc_type_id"`
	PerimeterID string `json:"perimeter_id"`
	Version     int    `json:"version"`
	EmitDate    Date   `json:"emit_date"`
	SignDate    Date   `json:"sign_date"`
}

// Fields is the ordered list of encoded fields
type Fields struct {
	Len     int     `json:"len"`
	Storage []Field `json:"storage"`
}

// Matrix groups the fields and the header
type Matrix struct {
	Fields Fields `json:"fields"`
	Header Header `json:"header"`
}

// DocumentInput is the circuit encoding of one document
type DocumentInput struct {
	Signature []string `json:"signature"`
	TotalLen  int      `json:"total_len"`
	Matrix    Matrix   `json:"matrix"`
}

// EncodeField copies value, then the separator if any, into a width-byte
// buffer. Len counts the separator.
func EncodeField(id, value string, width int, separator string) (Field, error) {
	content := []byte(value + separator)
	if len(content) > width {
		return Field{}, fmt.Errorf("%w: field %s needs %d bytes, width is %d", ErrFieldTooWide, id, len(content), width)
	}

	buf := make([]byte, width)
	copy(buf, content)

	return Field{
		ID: id,
		Data: FieldData{
			Len:     len(content),
			Storage: decimal(buf),
		},
	}, nil
}

// EmptyFieldData is an all-zero buffer of the given width
func EmptyFieldData(width int) FieldData {
	return FieldData{Len: width, Storage: decimal(make([]byte, width))}
}

// CanonicalizeSignature returns a copy of an r||s signature with s in the
// lower half of the curve order. Already canonical signatures come back unchanged.
func CanonicalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: want 64 bytes, got %d", ErrInvalidSignature, len(sig))
	}

	out := make([]byte, 64)
	copy(out, sig)

	// r and s must both lie in [1, N-1]
	r := new(big.Int).SetBytes(out[:32])
	s := new(big.Int).SetBytes(out[32:])
	for _, v := range []*big.Int{r, s} {
		if v.Sign() == 0 || v.Cmp(curveOrder) >= 0 {
			return nil, fmt.Errorf("%w: component out of range", ErrInvalidSignature)
		}
	}

	if s.Cmp(halfOrder) > 0 {
		s.Sub(curveOrder, s)
		s.FillBytes(out[32:])
	}
	return out, nil
}

// EncodeDocument encodes every field of doc in message order at the given width
func EncodeDocument(doc *domain.Document, width int) (*DocumentInput, error) {
	sig, err := CanonicalizeSignature(codec.DecodeBase32(doc.Signature))
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(doc.FieldOrder))
	for _, pf := range doc.OrderedFields() {
		f, err := EncodeField(pf.ID, pf.Raw, width, pf.Separator)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	h := doc.Header
	return &DocumentInput{
		Signature: decimal(sig),
		TotalLen:  h.HeaderLength + len(doc.MessageData),
		Matrix: Matrix{
			Fields: Fields{Len: len(fields), Storage: fields},
			Header: Header{
				CAID:        h.CAID,
				CertID:      h.CertID,
				CountryID:   h.CountryID,
				DocTypeID:   h.DocTypeID,
				PerimeterID: h.PerimeterID,
				Version:     h.Version,
				EmitDate:    splitDate(h.IssuanceDate),
				SignDate:    splitDate(h.SignatureDate),
			},
		},
	}, nil
}

func splitDate(iso string) Date {
	year, month, day := codec.SplitISO(iso)
	return Date{Day: day, Month: month, Year: year}
}

func decimal(b []byte) []string {
	out := make([]string, len(b))
	for i, v := range b {
		out[i] = strconv.Itoa(int(v))
	}
	return out
}
