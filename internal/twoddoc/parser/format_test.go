package parser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
)

func TestFormat(t *testing.T) {
	header := &domain.Header{Version: 3}

	tests := []struct {
		name    string
		fieldID string
		value   string
		want    string
		wantErr bool
	}{
		{"plain string", "24", "75001", "75001", false},
		{"formatted date", "1C", "01022021", "01-02-2021", false},
		{"formatted date wrong length", "1C", "0102", "0102", true},
		{"integer normalized", "43", "007", "7", false},
		{"integer not numeric", "43", "", "", true},
		{"amount suffix", "1D", "45,10", "45,10 €", false},
		{"tax reference grouping", "44", "1234567890123", "12 34 5678901 23", false},
		{"tax number grouping", "47", "1234567890123", "12 34 567 890 123", false},
		{"second tax number grouping", "49", "9876543210987", "98 76 543 210 987", false},
		{"grouping only at 13 characters", "44", "123456789012", "123456789012", false},
		{"other 13 character strings untouched", "62", "ABCDEFGHIJKLM", "ABCDEFGHIJKLM", false},
		{"year passthrough", "45", "2023", "2023", false},
		{"phone passthrough", "1F", "0601020304", "0601020304", false},
		{"unknown field passthrough", "ZZ", "abc", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.Format(tt.fieldID, tt.value, header)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, parser.ErrUnformattable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatAs_Date(t *testing.T) {
	day := time.Date(2021, 11, 26, 0, 0, 0, 0, time.UTC)

	t.Run("hex offset", func(t *testing.T) {
		got, err := parser.FormatAs(domain.FieldTypeDate, "XX", codec.EncodeHexDate(day), &domain.Header{Version: 3})
		require.NoError(t, err)
		assert.Equal(t, "26-11-2021", got)
	})

	t.Run("binary in version 4", func(t *testing.T) {
		got, err := parser.FormatAs(domain.FieldTypeDate, "XX", string(codec.EncodeBinaryDate(day)), &domain.Header{Version: 4, Binary: true})
		require.NoError(t, err)
		assert.Equal(t, "26-11-2021", got)
	})

	t.Run("undecodable", func(t *testing.T) {
		got, err := parser.FormatAs(domain.FieldTypeDate, "XX", "ZZZZ", &domain.Header{Version: 3})
		assert.ErrorIs(t, err, parser.ErrUnformattable)
		assert.Equal(t, "ZZZZ", got)
	})
}
