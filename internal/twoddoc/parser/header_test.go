package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
	"github.com/tddproof/tddproof-backend/pkg/testutil"
)

func TestParseHeader_Lengths(t *testing.T) {
	tests := []struct {
		name    string
		fixture testutil.PayloadFixture
		length  int
		binary  bool
	}{
		{"version 1", testutil.NewPayload(testutil.WithVersion(1)), 22, false},
		{"version 2", testutil.NewPayload(testutil.WithVersion(2)), 22, false},
		{"version 3", testutil.NewPayload(testutil.WithVersion(3)), 24, false},
		{"version 4 C40", testutil.NewPayload(testutil.WithVersion(4)), 26, false},
		{"version 4 binary", testutil.NewPayload(testutil.WithBinaryHeader("ANT", "C01")), 19, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(tt.fixture.Header(t))
			require.Len(t, raw, tt.length)

			h, err := parser.ParseHeader(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.length, h.HeaderLength)
			assert.Equal(t, tt.binary, h.Binary)

			want, err := parser.HeaderLength(h.Version, h.Binary)
			require.NoError(t, err)
			assert.Equal(t, want, h.HeaderLength)
		})
	}
}

func TestParseHeader_TextFields(t *testing.T) {
	tests := []struct {
		name      string
		version   int
		perimeter string
		country   string
	}{
		{"version 2 defaults perimeter and country", 2, "01", "FR"},
		{"version 3 reads perimeter", 3, "ID", "FR"},
		{"version 4 reads country", 4, "ID", "BE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewPayload(
				testutil.WithVersion(tt.version),
				testutil.WithDocumentType("ID", "01"),
				func(p *testutil.PayloadFixture) { p.CountryID = "BE" },
			)

			h, err := parser.ParseHeader([]byte(f.Header(t) + f.Message()))
			require.NoError(t, err)
			assert.Equal(t, tt.version, h.Version)
			assert.Equal(t, "FR05", h.CAID)
			assert.Equal(t, "FR05", h.CertID)
			assert.Equal(t, "2021-11-26", h.IssuanceDate)
			assert.Equal(t, "2021-11-27", h.SignatureDate)
			assert.Equal(t, "01", h.DocTypeID)
			assert.Equal(t, tt.perimeter, h.PerimeterID)
			assert.Equal(t, tt.country, h.CountryID)
		})
	}
}

func TestParseHeader_Binary(t *testing.T) {
	f := testutil.NewPayload(
		testutil.WithBinaryHeader("ANT", "C01"),
		testutil.WithDocumentType("ID", "1A"),
	)

	h, err := parser.ParseHeader([]byte(f.Header(t)))
	require.NoError(t, err)
	assert.Equal(t, 4, h.Version)
	assert.True(t, h.Binary)
	assert.Equal(t, "FR", h.CountryID)
	assert.Equal(t, "ANT", h.CAID)
	assert.Equal(t, "C01", h.CertID)
	assert.Equal(t, "2021-11-26", h.IssuanceDate)
	assert.Equal(t, "2021-11-27", h.SignatureDate)
	assert.Equal(t, "1A", h.DocTypeID)
	assert.Equal(t, "ID", h.PerimeterID)
}

func TestParseHeader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", domain.ErrMalformedHeader},
		{"missing marker", "XX01FR05FR051F401F410101", domain.ErrMalformedHeader},
		{"non numeric version", "DCAAFR05FR051F401F410101", domain.ErrUnsupportedVersion},
		{"version 0", "DC00FR05FR051F401F4101", domain.ErrUnsupportedVersion},
		{"version 5", "DC05FR05FR051F401F410101FR", domain.ErrUnsupportedVersion},
		{"truncated version 3", "DC03FR05FR051F40", domain.ErrMalformedHeader},
		{"bad issuance date", "DC01FR05FR05ZZZZ1F4101", domain.ErrMalformedHeader},
		{"bad signature date", "DC01FR05FR051F40GGGG01", domain.ErrMalformedHeader},
		{"truncated binary", "DC04\x68\x60\xab", domain.ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseHeader([]byte(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsBinaryEncoded(t *testing.T) {
	assert.False(t, parser.IsBinaryEncoded([]byte("DC04FR05FR051F401F410101FR")))
	assert.False(t, parser.IsBinaryEncoded(nil))
	assert.True(t, parser.IsBinaryEncoded([]byte{'D', 'C', 0x80}))
	assert.False(t, parser.IsBinaryEncoded([]byte{0x7F}))
}
