// Package service ties parsing, circuit preparation, metrics and event
// publication together for the HTTP and AMQP entry points.
package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/circuit"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/events"
	"github.com/tddproof/tddproof-backend/pkg/errors"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/metrics"
)

// Service runs the 2D-DOC pipeline
type Service struct {
	parser    circuit.Parser
	builder   *circuit.Builder
	publisher *events.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

// New creates the service. publisher and m may be nil.
func New(parser circuit.Parser, builder *circuit.Builder, publisher *events.Publisher, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		parser:    parser,
		builder:   builder,
		publisher: publisher,
		metrics:   m,
		logger:    log.WithComponent("twoddoc-service"),
		now:       time.Now,
	}
}

// ParseDocument parses one payload, records the outcome and publishes
// twoddoc.document.parsed or twoddoc.document.rejected.
func (s *Service) ParseDocument(ctx context.Context, requestID, raw string) (*domain.Document, error) {
	start := s.now()
	log := s.logger.WithRequestID(requestID)

	doc, err := s.parser.Parse(ctx, raw)
	elapsed := s.now().Sub(start)
	if err != nil {
		log.Info().Err(err).Dur("duration", elapsed).Msg("2D-DOC rejected")
		s.metrics.ObserveParse(metrics.OutcomeRejected, "", false, 0, elapsed)
		s.publisher.PublishDocumentRejected(ctx, requestID, err)
		return nil, err
	}

	log.WithDocument(doc.Header.PerimeterID, doc.Header.DocTypeID).Info().
		Str("category", string(doc.DocumentType.Category)).
		Bool("signature_valid", doc.SignatureValid).
		Int("fields", len(doc.FieldOrder)).
		Int("warnings", len(doc.Warnings)).
		Dur("duration", elapsed).
		Msg("2D-DOC parsed")

	s.metrics.ObserveParse(metrics.OutcomeParsed, doc.Header.PerimeterID, doc.SignatureValid, len(doc.Warnings), elapsed)
	s.publisher.PublishDocumentParsed(ctx, requestID, doc)
	return doc, nil
}

// BuildCircuitInput parses the identity and tax payloads concurrently, each
// through ParseDocument, then assembles their circuit input.
func (s *Service) BuildCircuitInput(ctx context.Context, requestID, idRaw, taxesRaw string) (*circuit.CircuitInput, error) {
	start := s.now()
	profile := string(s.builder.Config().Profile)

	var idDoc, taxesDoc *domain.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := s.ParseDocument(gctx, requestID+"/id", idRaw)
		if err != nil {
			return tagDocument(err, "id")
		}
		idDoc = doc
		return nil
	})
	g.Go(func() error {
		doc, err := s.ParseDocument(gctx, requestID+"/taxes", taxesRaw)
		if err != nil {
			return tagDocument(err, "taxes")
		}
		taxesDoc = doc
		return nil
	})

	var input *circuit.CircuitInput
	err := g.Wait()
	if err == nil {
		input, err = s.builder.Assemble(idDoc, taxesDoc)
	}

	elapsed := s.now().Sub(start)
	log := s.logger.WithRequestID(requestID)
	if err != nil {
		log.Info().Err(err).Str("profile", profile).Dur("duration", elapsed).Msg("circuit input rejected")
		s.metrics.ObserveCircuit(profile, metrics.OutcomeFailed, elapsed)
		return nil, err
	}

	log.Info().
		Str("profile", profile).
		Bool("id_signature_valid", idDoc.SignatureValid).
		Bool("taxes_signature_valid", taxesDoc.SignatureValid).
		Dur("duration", elapsed).
		Msg("circuit input prepared")

	s.metrics.ObserveCircuit(profile, metrics.OutcomeParsed, elapsed)
	s.publisher.PublishCircuitPrepared(ctx, requestID, profile, idDoc.SignatureValid, taxesDoc.SignatureValid)
	return input, nil
}

// Profile returns the matcher profile circuit inputs are built with
func (s *Service) Profile() circuit.Profile {
	return s.builder.Config().Profile
}

// tagDocument records which of the two payloads failed. AppErrors keep their
// code and status so the HTTP layer reports them unchanged.
func tagDocument(err error, which string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		tagged := *appErr
		details := make(map[string]string, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			details[k] = v
		}
		details["document"] = which
		tagged.Details = details
		return &tagged
	}
	return fmt.Errorf("%s document: %w", which, err)
}
