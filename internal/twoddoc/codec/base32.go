package codec

import (
	"encoding/base32"
	"strings"
)

var signatureEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeBase32 decodes a signature zone leniently: padding is dropped,
// lowercase is accepted, characters outside A-Z2-7 are ignored and trailing
// bits that do not form a whole byte are discarded.
func DecodeBase32(s string) []byte {
	s = strings.TrimRight(s, "=")
	s = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7') {
			return r
		}
		return -1
	}, s)

	// lengths 1, 3 and 6 mod 8 leave a dangling character that carries no full byte
	switch len(s) % 8 {
	case 1, 3, 6:
		s = s[:len(s)-1]
	}

	out, err := signatureEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return out
}

// EncodeBase32 encodes bytes without padding
func EncodeBase32(b []byte) string {
	return signatureEncoding.EncodeToString(b)
}
