package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
)

// Separator bytes, duplicated here so fixtures read without the domain package
const (
	gs = "\x1d"
	fs = "\x1f"
	us = "\x1c"
)

// FieldFixture is one field of a fixture message
type FieldFixture struct {
	ID        string
	Value     string
	Separator bool
}

// PayloadFixture describes a 2D-DOC payload to build
type PayloadFixture struct {
	Version     int
	Binary      bool
	CAID        string
	CertID      string
	Issued      time.Time
	Signed      time.Time
	DocTypeID   string
	PerimeterID string
	CountryID   string
	Fields      []FieldFixture
	Annex       []FieldFixture

	// Key signs header+message. Signature, when set, is used verbatim instead.
	Key       *ecdsa.PrivateKey
	Signature []byte

	// OmitSeparator drops the message/signature separator
	OmitSeparator bool
}

// NewSigningKey generates a P-256 key for fixtures
func NewSigningKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

// NewPayload creates a version 3 proof-of-address fixture with defaults
func NewPayload(opts ...func(*PayloadFixture)) PayloadFixture {
	p := PayloadFixture{
		Version:     3,
		CAID:        "FR05",
		CertID:      "FR05",
		Issued:      time.Date(2021, 11, 26, 0, 0, 0, 0, time.UTC),
		Signed:      time.Date(2021, 11, 27, 0, 0, 0, 0, time.UTC),
		DocTypeID:   "01",
		PerimeterID: "01",
		CountryID:   "FR",
		Fields: []FieldFixture{
			{ID: "10", Value: "12 RUE DES LILAS", Separator: true},
			{ID: "24", Value: "75001"},
			{ID: "26", Value: "FR"},
		},
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithVersion sets the header version
func WithVersion(v int) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.Version = v
	}
}

// WithBinaryHeader switches to the binary version 4 layout. IDs must fit
// one C40 word (three characters).
func WithBinaryHeader(caID, certID string) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.Version = 4
		p.Binary = true
		p.CAID = caID
		p.CertID = certID
	}
}

// WithDocumentType sets perimeter and document type
func WithDocumentType(perimeterID, docTypeID string) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.PerimeterID = perimeterID
		p.DocTypeID = docTypeID
	}
}

// WithFields replaces the message fields
func WithFields(fields ...FieldFixture) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.Fields = fields
	}
}

// WithAnnex sets the version 4 annex fields
func WithAnnex(fields ...FieldFixture) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.Annex = fields
	}
}

// WithKey signs the payload with key
func WithKey(key *ecdsa.PrivateKey) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.Key = key
	}
}

// WithSignature uses raw signature bytes verbatim
func WithSignature(sig []byte) func(*PayloadFixture) {
	return func(p *PayloadFixture) {
		p.Signature = sig
	}
}

// IdentityPayload is a national identity card for first names "JEAN/PAUL" and name "DUPONT"
func IdentityPayload(key *ecdsa.PrivateKey) PayloadFixture {
	return NewPayload(
		WithKey(key),
		WithDocumentType("ID", "01"),
		WithFields(
			FieldFixture{ID: "60", Value: "JEAN/PAUL", Separator: true},
			FieldFixture{ID: "62", Value: "DUPONT", Separator: true},
			FieldFixture{ID: "68", Value: "M"},
			FieldFixture{ID: "69", Value: "01021990"},
		),
	)
}

// TaxPayload is a tax notice for declarant "DUPONT JEAN" with the given revenue and year
func TaxPayload(key *ecdsa.PrivateKey, revenue, year string) PayloadFixture {
	return NewPayload(
		WithKey(key),
		WithDocumentType("FI", "01"),
		WithFields(
			FieldFixture{ID: "41", Value: revenue, Separator: true},
			FieldFixture{ID: "45", Value: year},
			FieldFixture{ID: "46", Value: "DUPONT JEAN", Separator: true},
			FieldFixture{ID: "47", Value: "1234567890123"},
		),
	)
}

// Header renders the header bytes
func (p PayloadFixture) Header(t testing.TB) string {
	t.Helper()

	if p.Binary {
		return p.binaryHeader(t)
	}

	h := fmt.Sprintf("DC%02d", p.Version) + p.CAID + p.CertID +
		codec.EncodeHexDate(p.Issued) + codec.EncodeHexDate(p.Signed) + p.DocTypeID
	if p.Version >= 3 {
		h += p.PerimeterID
	}
	if p.Version >= 4 {
		h += p.CountryID
	}
	return h
}

func (p PayloadFixture) binaryHeader(t testing.TB) string {
	word := func(s string) []byte {
		b, err := codec.EncodeC40(s)
		if err != nil || len(b) != 2 {
			t.Fatalf("cannot pack %q in one C40 word: %v", s, err)
		}
		return b
	}

	docType, err := strconv.ParseUint(p.DocTypeID, 16, 8)
	if err != nil {
		t.Fatalf("binary doc type must be hex: %v", err)
	}

	h := []byte("DC04")
	h = append(h, word(p.CountryID)...)
	h = append(h, word(p.CAID)...)
	h = append(h, word(p.CertID)...)
	h = append(h, codec.EncodeBinaryDate(p.Issued)...)
	h = append(h, codec.EncodeBinaryDate(p.Signed)...)
	h = append(h, byte(docType))
	h = append(h, p.PerimeterID[:2]...)
	return string(h)
}

// Message renders the message zone
func (p PayloadFixture) Message() string {
	return renderFields(p.Fields)
}

// SignatureBytes returns the raw r||s signature the payload carries
func (p PayloadFixture) SignatureBytes(t testing.TB) []byte {
	t.Helper()

	if p.Signature != nil {
		return p.Signature
	}
	if p.Key == nil {
		return make([]byte, 64)
	}

	digest := sha256.Sum256([]byte(p.Header(t) + p.Message()))
	r, s, err := ecdsa.Sign(rand.Reader, p.Key, digest[:])
	if err != nil {
		t.Fatalf("failed to sign fixture: %v", err)
	}

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig
}

// Build renders the complete payload
func (p PayloadFixture) Build(t testing.TB) string {
	t.Helper()

	out := p.Header(t) + p.Message()
	if !p.OmitSeparator {
		if p.Version == 4 {
			out += us
		} else {
			out += fs
		}
	}
	out += codec.EncodeBase32(p.SignatureBytes(t))
	if len(p.Annex) > 0 {
		out += gs + renderFields(p.Annex)
	}
	return out
}

func renderFields(fields []FieldFixture) string {
	var out string
	for _, f := range fields {
		out += f.ID + f.Value
		if f.Separator {
			out += gs
		}
	}
	return out
}
