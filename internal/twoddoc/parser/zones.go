package parser

import (
	"bytes"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

// fallbackSignatureLength is assumed when a producer omits the separator
const fallbackSignatureLength = 128

// Zones is the payload after the header, cut into its parts
type Zones struct {
	Message   []byte
	Signature []byte
	Annex     []byte
	HasAnnex  bool
}

// SplitZones separates message, signature and the optional version 4 annex.
// Only the first separator counts; the annex may itself contain GS bytes.
func SplitZones(data []byte, version int) Zones {
	separators := []byte{domain.FS}
	if version == 4 {
		separators = []byte{domain.US, domain.FS}
	}

	var z Zones
	split := false
	for _, sep := range separators {
		parts := bytes.SplitN(data, []byte{sep}, 2)
		if len(parts) > 1 {
			z.Message, z.Signature = parts[0], parts[1]
			split = true
			break
		}
	}

	if !split {
		if len(data) > fallbackSignatureLength {
			cut := len(data) - fallbackSignatureLength
			z.Message, z.Signature = data[:cut], data[cut:]
		} else {
			z.Message = data
		}
	}

	if version == 4 && len(z.Signature) > 0 {
		if parts := bytes.SplitN(z.Signature, []byte{domain.GS}, 2); len(parts) > 1 {
			z.Signature, z.Annex = parts[0], parts[1]
			z.HasAnnex = true
		}
	}

	return z
}
