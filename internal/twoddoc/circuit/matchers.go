package circuit

import (
	"net/http"
	"strings"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/pkg/errors"
)

// Profile selects the matcher layout expected by a circuit
type Profile string

const (
	// ProfileMultiple emits one tagged matcher object per comparison
	ProfileMultiple Profile = "multiple"
	// ProfileTenant emits the bare encoded names and numeric thresholds
	ProfileTenant Profile = "tenant"
)

// Valid reports whether p is a known profile
func (p Profile) Valid() bool {
	return p == ProfileMultiple || p == ProfileTenant
}

// Matcher kinds
const (
	MatchPattern = 1
	MatchValue   = 2
)

// Inequality directions for value matchers
const (
	InequalityLower   = 0
	InequalityGreater = 1
)

// Field IDs the matchers read
const (
	fieldFirstNames = "60"
	fieldLastName   = "62"
	fieldDeclarant  = "46"
	fieldRevenue    = "41"
	fieldTaxYear    = "45"
)

// Option is the circuit's encoding of an optional value
type Option[T any] struct {
	IsSome int `json:"_is_some"`
	Value  T   `json:"_value"`
}

func some[T any](v T) Option[T] { return Option[T]{IsSome: 1, Value: v} }

func none[T any](v T) Option[T] { return Option[T]{IsSome: 0, Value: v} }

// Matcher compares a document field with an expected pattern or threshold
type Matcher struct {
	TDDFieldID string            `json:"tdd_field_id"`
	FieldType  int               `json:"field_type"`
	Pattern    Option[FieldData] `json:"pattern"`
	Value      Option[int]       `json:"value"`
	Inequality Option[int]       `json:"inequality"`
}

func patternMatcher(f Field) Matcher {
	return Matcher{
		TDDFieldID: f.ID,
		FieldType:  MatchPattern,
		Pattern:    some(f.Data),
		Value:      none(0),
		Inequality: none(0),
	}
}

func valueMatcher(fieldID string, width, value, inequality int) Matcher {
	return Matcher{
		TDDFieldID: fieldID,
		FieldType:  MatchValue,
		Pattern:    none(EmptyFieldData(width)),
		Value:      some(value),
		Inequality: some(inequality),
	}
}

// names holds the encoded name parts compared across the two documents
type names struct {
	idFirst, idLast       Field
	taxesFirst, taxesLast Field
}

func missingField(fieldID, part string) error {
	return errors.New("MATCHER_FIELD_MISSING", "Document lacks a field required for matching", http.StatusUnprocessableEntity).
		WithDetails(map[string]string{"field": fieldID, "part": part})
}

// namePart returns element i of the field's cleaned value split on sep.
// An empty sep takes the whole value.
func namePart(doc *domain.Document, fieldID, sep string, i int, part string) (string, error) {
	f, ok := doc.Field(fieldID)
	if !ok {
		return "", missingField(fieldID, part)
	}
	parts := []string{f.Raw}
	if sep != "" {
		parts = strings.Split(f.Raw, sep)
	}
	if i >= len(parts) || strings.TrimSpace(parts[i]) == "" {
		return "", missingField(fieldID, part)
	}
	return parts[i], nil
}

func extractNames(id, taxes *domain.Document, width int) (*names, error) {
	type source struct {
		doc     *domain.Document
		fieldID string
		sep     string
		index   int
		part    string
		dst     *Field
	}

	var n names
	for _, s := range []source{
		{id, fieldFirstNames, "/", 0, "first_name", &n.idFirst},
		{id, fieldLastName, "", 0, "last_name", &n.idLast},
		{taxes, fieldDeclarant, " ", 1, "first_name", &n.taxesFirst},
		{taxes, fieldDeclarant, " ", 0, "last_name", &n.taxesLast},
	} {
		value, err := namePart(s.doc, s.fieldID, s.sep, s.index, s.part)
		if err != nil {
			return nil, err
		}
		f, err := EncodeField(s.fieldID, value, width, "")
		if err != nil {
			return nil, errors.Wrap(err, "MATCHER_TOO_WIDE", "Name does not fit the matcher width", http.StatusUnprocessableEntity)
		}
		*s.dst = f
	}
	return &n, nil
}

// buildMatchers produces the profile-specific matcher set
func buildMatchers(cfg Config, id, taxes *domain.Document) (map[string]any, error) {
	n, err := extractNames(id, taxes, cfg.MatcherWidth)
	if err != nil {
		return nil, err
	}
	if _, ok := taxes.Field(fieldTaxYear); !ok {
		return nil, missingField(fieldTaxYear, "year")
	}

	if cfg.Profile == ProfileTenant {
		return map[string]any{
			"id_first_name":      n.idFirst.Data,
			"id_last_name":       n.idLast.Data,
			"taxes_first_name":   n.taxesFirst.Data,
			"taxes_last_name":    n.taxesLast.Data,
			"taxes_base_revenue": cfg.RevenueThreshold,
			"taxes_year":         cfg.TaxYear,
		}, nil
	}

	return map[string]any{
		"id_first_name":      patternMatcher(n.idFirst),
		"id_last_name":       patternMatcher(n.idLast),
		"taxes_first_name":   patternMatcher(n.taxesFirst),
		"taxes_last_name":    patternMatcher(n.taxesLast),
		"taxes_base_revenue": valueMatcher(fieldRevenue, cfg.MatcherWidth, cfg.RevenueThreshold, InequalityGreater),
		"taxes_year":         valueMatcher(fieldTaxYear, cfg.MatcherWidth, cfg.TaxYear, InequalityLower),
	}, nil
}
