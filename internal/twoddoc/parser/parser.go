// Package parser turns a raw 2D-DOC payload into a structured document.
package parser

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/verifier"
	"github.com/tddproof/tddproof-backend/pkg/errors"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

// Parser runs the header, zone, field and signature stages over a payload.
// It holds no per-document state and is safe for concurrent use.
type Parser struct {
	verifier *verifier.Verifier
	log      *logger.Logger
}

// New creates a parser. A nil verifier reports every signature as invalid.
func New(v *verifier.Verifier, log *logger.Logger) *Parser {
	return &Parser{
		verifier: v,
		log:      log.WithComponent("parser"),
	}
}

// Parse decodes one payload. Structural failures abort with a PARSE_FAILED
// AppError; an invalid signature only sets SignatureValid to false.
func (p *Parser) Parse(ctx context.Context, raw string) (*domain.Document, error) {
	doc, err := p.parse(ctx, PayloadBytes(raw))
	if err != nil {
		return nil, errors.Wrap(err, "PARSE_FAILED", "Failed to parse 2D-DOC", http.StatusUnprocessableEntity)
	}
	return doc, nil
}

func (p *Parser) parse(ctx context.Context, data []byte) (*domain.Document, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	docType := catalog.LookupDocumentType(header.PerimeterID, header.DocTypeID)
	if !docType.Supported() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDocumentType, docType.Name)
	}

	log := p.log.WithDocument(header.PerimeterID, header.DocTypeID)

	zones := SplitZones(data[header.HeaderLength:], header.Version)

	signed := make([]byte, 0, header.HeaderLength+len(zones.Message))
	signed = append(signed, data[:header.HeaderLength]...)
	signed = append(signed, zones.Message...)
	signature := string(zones.Signature)

	var (
		valid    bool
		fields   extraction
		annex    extraction
		hasAnnex = zones.HasAnnex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p.verifier != nil {
			valid = p.verifier.Verify(gctx, header, signed, signature)
		}
		return nil
	})
	g.Go(func() error {
		fields = extract(zones.Message, header)
		if hasAnnex {
			annex = extract(zones.Annex, header)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	warnings := append(fields.warnings, annex.warnings...)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	doc := &domain.Document{
		Header:         *header,
		DocumentType:   docType,
		Fields:         fields.fields,
		FieldOrder:     fields.order,
		Signature:      signature,
		SignatureValid: valid,
		MessageData:    string(zones.Message),
		Warnings:       warnings,
	}
	if hasAnnex {
		doc.Annex = annex.fields
	}

	log.Debug().
		Int("fields", len(doc.Fields)).
		Bool("signature_valid", valid).
		Msg("document parsed")

	return doc, nil
}

type extraction struct {
	fields   map[string]domain.ParsedField
	order    []string
	warnings []string
}

func extract(zone []byte, header *domain.Header) extraction {
	res := Tokenize(zone)

	out := extraction{
		fields: make(map[string]domain.ParsedField, len(res.Fields)),
		order:  make([]string, 0, len(res.Fields)),
	}
	for _, id := range res.Duplicates {
		out.warnings = append(out.warnings, fmt.Sprintf("duplicate field %s skipped", id))
	}

	for _, rf := range res.Fields {
		def, _ := catalog.Field(rf.FieldID)

		value, err := Format(rf.FieldID, rf.Cleaned, header)
		if err != nil {
			out.warnings = append(out.warnings, err.Error())
		}

		out.fields[rf.FieldID] = domain.ParsedField{
			ID:        rf.FieldID,
			Name:      def.Name,
			Type:      def.Type,
			Value:     value,
			Raw:       rf.Cleaned,
			Separator: rf.Separator,
		}
		out.order = append(out.order, rf.FieldID)
	}

	return out
}

// PayloadBytes recovers the payload bytes from its string form. Scanners that
// hand over binary version 4 content as text map each byte to the code point
// of the same value; such strings are folded back to one byte per rune.
// A string holding any rune above 0xFF cannot be such a mapping and is kept
// as UTF-8, so field bounds, the signed span and total_len all count bytes.
func PayloadBytes(raw string) []byte {
	if !utf8.ValidString(raw) {
		return []byte(raw)
	}

	wide := false
	for _, r := range raw {
		if r > 0xFF {
			return []byte(raw)
		}
		if r > 0x7F {
			wide = true
		}
	}
	if !wide {
		return []byte(raw)
	}

	out := make([]byte, 0, utf8.RuneCountInString(raw))
	for _, r := range raw {
		out = append(out, byte(r))
	}
	return out
}
