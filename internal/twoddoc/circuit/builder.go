package circuit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/errors"
)

// Default encoding parameters
const (
	DefaultFieldWidth       = 20
	DefaultMatcherWidth     = 15
	DefaultRevenueThreshold = 300
	DefaultTaxYear          = 2023
)

// Parser is the part of the document parser the builder needs
type Parser interface {
	Parse(ctx context.Context, raw string) (*domain.Document, error)
}

// Config sets widths, thresholds and the matcher profile
type Config struct {
	FieldWidth       int
	MatcherWidth     int
	Profile          Profile
	RevenueThreshold int
	TaxYear          int
}

// DefaultConfig returns the encoding used by the reference circuit
func DefaultConfig() Config {
	return Config{
		FieldWidth:       DefaultFieldWidth,
		MatcherWidth:     DefaultMatcherWidth,
		Profile:          ProfileMultiple,
		RevenueThreshold: DefaultRevenueThreshold,
		TaxYear:          DefaultTaxYear,
	}
}

// CircuitInput combines an identity document, a tax notice and the matchers
// relating them. It marshals as one flat object.
type CircuitInput struct {
	ID       *DocumentInput
	Taxes    *DocumentInput
	Matchers map[string]any

	// parsed sources, not part of the circuit input
	IDDocument    *domain.Document
	TaxesDocument *domain.Document
}

// MarshalJSON implements json.Marshaler
func (c *CircuitInput) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Matchers)+2)
	for k, v := range c.Matchers {
		out[k] = v
	}
	out["tdd_id"] = c.ID
	out["tdd_taxes"] = c.Taxes
	return json.Marshal(out)
}

// Builder parses two payloads and assembles their circuit input
type Builder struct {
	parser Parser
	cfg    Config
}

// NewBuilder creates a builder. Zero config values fall back to the defaults.
func NewBuilder(parser Parser, cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.FieldWidth <= 0 {
		cfg.FieldWidth = def.FieldWidth
	}
	if cfg.MatcherWidth <= 0 {
		cfg.MatcherWidth = def.MatcherWidth
	}
	if !cfg.Profile.Valid() {
		cfg.Profile = def.Profile
	}
	if cfg.RevenueThreshold == 0 {
		cfg.RevenueThreshold = def.RevenueThreshold
	}
	if cfg.TaxYear == 0 {
		cfg.TaxYear = def.TaxYear
	}
	return &Builder{parser: parser, cfg: cfg}
}

// Config returns the effective configuration
func (b *Builder) Config() Config {
	return b.cfg
}

// Build parses the identity and tax payloads concurrently and encodes both
func (b *Builder) Build(ctx context.Context, idRaw, taxesRaw string) (*CircuitInput, error) {
	var idDoc, taxesDoc *domain.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := b.parser.Parse(gctx, idRaw)
		if err != nil {
			return fmt.Errorf("identity document: %w", err)
		}
		idDoc = doc
		return nil
	})
	g.Go(func() error {
		doc, err := b.parser.Parse(gctx, taxesRaw)
		if err != nil {
			return fmt.Errorf("tax document: %w", err)
		}
		taxesDoc = doc
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return b.Assemble(idDoc, taxesDoc)
}

// Assemble encodes two already parsed documents
func (b *Builder) Assemble(idDoc, taxesDoc *domain.Document) (*CircuitInput, error) {
	idInput, err := EncodeDocument(idDoc, b.cfg.FieldWidth)
	if err != nil {
		return nil, encodeFailed("identity document", err)
	}
	taxesInput, err := EncodeDocument(taxesDoc, b.cfg.FieldWidth)
	if err != nil {
		return nil, encodeFailed("tax document", err)
	}

	matchers, err := buildMatchers(b.cfg, idDoc, taxesDoc)
	if err != nil {
		return nil, err
	}

	return &CircuitInput{
		ID:            idInput,
		Taxes:         taxesInput,
		Matchers:      matchers,
		IDDocument:    idDoc,
		TaxesDocument: taxesDoc,
	}, nil
}

func encodeFailed(which string, err error) error {
	return errors.Wrap(fmt.Errorf("%s: %w", which, err), "CIRCUIT_ENCODING_FAILED", "Failed to encode circuit input", http.StatusUnprocessableEntity)
}

// ConfigFrom maps the twoddoc settings onto a builder config
func ConfigFrom(c config.TwoDDocConfig) Config {
	return Config{
		FieldWidth:       c.FieldWidth,
		MatcherWidth:     c.MatcherWidth,
		Profile:          Profile(c.MatcherProfile),
		RevenueThreshold: c.RevenueThreshold,
		TaxYear:          c.TaxYear,
	}
}
