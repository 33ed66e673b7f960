package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
)

func TestSplitZones(t *testing.T) {
	longSig := strings.Repeat("A", 128)

	tests := []struct {
		name      string
		data      string
		version   int
		message   string
		signature string
		annex     string
		hasAnnex  bool
	}{
		{"field separator", "MSG\x1fSIG", 3, "MSG", "SIG", "", false},
		{"unit separator in version 4", "MSG\x1cSIG", 4, "MSG", "SIG", "", false},
		{"version 4 prefers unit separator", "M\x1fSG\x1cSIG", 4, "M\x1fSG", "SIG", "", false},
		{"version 4 falls back to field separator", "MSG\x1fSIG", 4, "MSG", "SIG", "", false},
		{"unit separator ignored before version 4", "MSG\x1cSIG", 3, "MSG\x1cSIG", "", "", false},
		{"no separator, short payload", "MSG", 2, "MSG", "", "", false},
		{"no separator, trailing 128 bytes", "24750012612" + longSig, 3, "24750012612", longSig, "", false},
		{"version 4 annex", "MSG\x1cSIG\x1d6601\x1d67FR", 4, "MSG", "SIG", "6601\x1d67FR", true},
		{"group separator is not an annex before version 4", "MSG\x1fSIG\x1dX", 3, "MSG", "SIG\x1dX", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := parser.SplitZones([]byte(tt.data), tt.version)
			assert.Equal(t, tt.message, string(z.Message))
			assert.Equal(t, tt.signature, string(z.Signature))
			assert.Equal(t, tt.annex, string(z.Annex))
			assert.Equal(t, tt.hasAnnex, z.HasAnnex)
		})
	}
}
