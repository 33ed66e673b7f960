package parser_test

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/verifier"
	"github.com/tddproof/tddproof-backend/pkg/errors"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/testutil"
)

func newParser(trusted *ecdsa.PrivateKey) *parser.Parser {
	v := verifier.New(verifier.NewStaticKeyStore(&trusted.PublicKey), logger.Nop())
	return parser.New(v, logger.Nop())
}

func TestParse_PostalCodeExample(t *testing.T) {
	ctx := context.Background()
	key := testutil.NewSigningKey(t)
	p := newParser(key)

	fields := testutil.WithFields(testutil.FieldFixture{ID: "24", Value: "75001"})

	tests := []struct {
		name    string
		fixture testutil.PayloadFixture
	}{
		{
			name: "version 1 header",
			fixture: testutil.NewPayload(testutil.WithKey(key), testutil.WithVersion(1),
				testutil.WithDocumentType("01", "07"), fields,
				func(f *testutil.PayloadFixture) { f.CAID, f.CertID = "1234", "5678" }),
		},
		{
			name: "version 3 header ending in 0701",
			fixture: testutil.NewPayload(testutil.WithKey(key), testutil.WithVersion(3),
				testutil.WithDocumentType("01", "07"), fields,
				func(f *testutil.PayloadFixture) { f.CAID, f.CertID = "1234", "5678" }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := p.Parse(ctx, tt.fixture.Build(t))
			require.NoError(t, err)

			field, ok := doc.Field("24")
			require.True(t, ok)
			assert.Equal(t, "75001", field.Value)
			assert.Equal(t, "Code postal point de service", field.Name)

			def, ok := catalog.Field("24")
			require.True(t, ok)
			assert.Equal(t, domain.LengthFixed, def.LengthType)
			assert.Equal(t, 5, def.Length)

			assert.Equal(t, "1234", doc.Header.CAID)
			assert.Equal(t, "5678", doc.Header.CertID)
			assert.Equal(t, "Carte d'identité", doc.DocumentType.Name)
			assert.True(t, doc.SignatureValid)
		})
	}
}

func TestParse_Document(t *testing.T) {
	ctx := context.Background()
	key := testutil.NewSigningKey(t)
	fixture := testutil.NewPayload(testutil.WithKey(key))

	doc, err := newParser(key).Parse(ctx, fixture.Build(t))
	require.NoError(t, err)

	assert.Equal(t, 3, doc.Header.Version)
	assert.Equal(t, 24, doc.Header.HeaderLength)
	assert.Equal(t, domain.CategoryProofOfAddress, doc.DocumentType.Category)
	assert.Equal(t, []string{"10", "24", "26"}, doc.FieldOrder)
	assert.Equal(t, "12 RUE DES LILAS", doc.Fields["10"].Value)
	assert.Equal(t, "\x1d", doc.Fields["10"].Separator)
	assert.Equal(t, "FR", doc.Fields["26"].Value)
	assert.Equal(t, fixture.Message(), doc.MessageData)
	assert.Len(t, doc.Signature, 103)
	assert.True(t, doc.SignatureValid)
	assert.Empty(t, doc.Warnings)
	assert.Nil(t, doc.Annex)

	ordered := doc.OrderedFields()
	require.Len(t, ordered, 3)
	assert.Equal(t, "26", ordered[2].ID)
}

func TestParse_Signature(t *testing.T) {
	ctx := context.Background()
	key := testutil.NewSigningKey(t)
	other := testutil.NewSigningKey(t)

	tests := []struct {
		name    string
		fixture testutil.PayloadFixture
		trusted *ecdsa.PrivateKey
		want    bool
	}{
		{"signed by trusted key", testutil.NewPayload(testutil.WithKey(key)), key, true},
		{"signed by another key", testutil.NewPayload(testutil.WithKey(other)), key, false},
		{"zero signature", testutil.NewPayload(), key, false},
		{"binary header", testutil.NewPayload(testutil.WithKey(key), testutil.WithBinaryHeader("ANT", "C01")), key, true},
		{"C40 version 4", testutil.NewPayload(testutil.WithKey(key), testutil.WithVersion(4)), key, true},
		{"version 1", testutil.NewPayload(testutil.WithKey(key), testutil.WithVersion(1)), key, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := newParser(tt.trusted).Parse(ctx, tt.fixture.Build(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.SignatureValid)
			assert.Equal(t, "75001", doc.Fields["24"].Value)
		})
	}
}

func TestParse_TamperedMessage(t *testing.T) {
	key := testutil.NewSigningKey(t)
	raw := testutil.NewPayload(testutil.WithKey(key)).Build(t)
	raw = strings.Replace(raw, "75001", "75002", 1)

	doc, err := newParser(key).Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, doc.SignatureValid)
	assert.Equal(t, "75002", doc.Fields["24"].Value)
}

func TestParse_NilVerifier(t *testing.T) {
	key := testutil.NewSigningKey(t)
	doc, err := parser.New(nil, logger.Nop()).Parse(context.Background(), testutil.NewPayload(testutil.WithKey(key)).Build(t))
	require.NoError(t, err)
	assert.False(t, doc.SignatureValid)
}

func TestParse_DocumentTypes(t *testing.T) {
	key := testutil.NewSigningKey(t)
	p := newParser(key)

	doc, err := p.Parse(context.Background(), testutil.IdentityPayload(key).Build(t))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryIdentity, doc.DocumentType.Category)
	assert.Equal(t, "JEAN/PAUL", doc.Fields["60"].Value)
	assert.Equal(t, "01-02-1990", doc.Fields["69"].Value)

	_, err = p.Parse(context.Background(), testutil.NewPayload(testutil.WithKey(key), testutil.WithDocumentType("ZZ", "01")).Build(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedDocumentType)
	assert.Contains(t, err.Error(), "Type inconnu (Périmètre: ZZ, Type: 01)")
}

func TestParse_FatalErrors(t *testing.T) {
	p := newParser(testutil.NewSigningKey(t))

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"missing marker", "XX03FR05FR051F401F4101012475001", domain.ErrMalformedHeader},
		{"unsupported version", "DC09FR05FR051F401F4101012475001", domain.ErrUnsupportedVersion},
		{"unsupported document type", "DC03FR05FR051F401F41ZZZZ2475001", domain.ErrUnsupportedDocumentType},
		{"truncated header", "DC03FR05", domain.ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := p.Parse(context.Background(), tt.raw)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, strings.HasPrefix(err.Error(), "Failed to parse 2D-DOC: "))

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "PARSE_FAILED", appErr.Code)
			assert.Equal(t, 422, appErr.StatusCode)
		})
	}
}

func TestParse_Warnings(t *testing.T) {
	key := testutil.NewSigningKey(t)
	fixture := testutil.NewPayload(testutil.WithKey(key), testutil.WithFields(
		testutil.FieldFixture{ID: "24", Value: "75001"},
		testutil.FieldFixture{ID: "24", Value: "13001"},
		testutil.FieldFixture{ID: "1C", Value: "0102"},
	))

	doc, err := newParser(key).Parse(context.Background(), fixture.Build(t))
	require.NoError(t, err)
	assert.Equal(t, "75001", doc.Fields["24"].Value)
	assert.Contains(t, doc.Warnings, "duplicate field 24 skipped")
	require.Len(t, doc.Warnings, 2)
	assert.Equal(t, "0102", doc.Fields["1C"].Value)
	assert.True(t, doc.SignatureValid)
}

func TestParse_StopsAtEndOfMessage(t *testing.T) {
	key := testutil.NewSigningKey(t)
	fixture := testutil.NewPayload(testutil.WithKey(key), testutil.WithFields(
		testutil.FieldFixture{ID: "24", Value: "75001"},
		testutil.FieldFixture{ID: "S6"},
		testutil.FieldFixture{ID: "26", Value: "FR"},
	))

	doc, err := newParser(key).Parse(context.Background(), fixture.Build(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"24"}, doc.FieldOrder)
	assert.True(t, doc.SignatureValid)
}

func TestParse_Annex(t *testing.T) {
	key := testutil.NewSigningKey(t)
	fixture := testutil.NewPayload(
		testutil.WithKey(key),
		testutil.WithVersion(4),
		testutil.WithAnnex(
			testutil.FieldFixture{ID: "66", Value: "X1234567", Separator: true},
			testutil.FieldFixture{ID: "67", Value: "FR"},
		),
	)

	doc, err := newParser(key).Parse(context.Background(), fixture.Build(t))
	require.NoError(t, err)
	assert.True(t, doc.SignatureValid)
	require.NotNil(t, doc.Annex)
	assert.Equal(t, "X1234567", doc.Annex["66"].Value)
	assert.Equal(t, "FR", doc.Annex["67"].Value)
	assert.NotContains(t, doc.Fields, "66")
}

func TestParse_Concurrent(t *testing.T) {
	key := testutil.NewSigningKey(t)
	p := newParser(key)
	payloads := []string{
		testutil.NewPayload(testutil.WithKey(key)).Build(t),
		testutil.IdentityPayload(key).Build(t),
		testutil.TaxPayload(key, "45000", "2023").Build(t),
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			doc, err := p.Parse(context.Background(), raw)
			assert.NoError(t, err)
			assert.True(t, doc.SignatureValid)
		}(payloads[i%len(payloads)])
	}
	wg.Wait()
}

func TestParse_WideRunesCountAsBytes(t *testing.T) {
	key := testutil.NewSigningKey(t)
	p := newParser(key)

	fixture := testutil.NewPayload(testutil.WithKey(key), testutil.WithFields(
		testutil.FieldFixture{ID: "10", Value: "2 RUE DE L’ÉGLISE", Separator: true},
		testutil.FieldFixture{ID: "24", Value: "75001"},
	))

	doc, err := p.Parse(context.Background(), fixture.Build(t))
	require.NoError(t, err)
	assert.True(t, doc.SignatureValid, "the signed span is the UTF-8 encoding")
	assert.Equal(t, fixture.Message(), doc.MessageData)
	assert.Greater(t, len(doc.MessageData), utf8.RuneCountInString(doc.MessageData))
}

func TestPayloadBytes(t *testing.T) {
	assert.Equal(t, []byte("DC03"), parser.PayloadBytes("DC03"))
	assert.Equal(t, []byte{'D', 'C', 0xAB, 0xD8}, parser.PayloadBytes("DC«Ø"))
	assert.Equal(t, []byte("€"), parser.PayloadBytes("€"))
	assert.Equal(t, []byte{0xAB, 'x'}, parser.PayloadBytes(string([]byte{0xAB, 'x'})))
}
