// Package codec implements the small encodings found inside 2D-DOC payloads:
// C40 words, hex day-offset dates, packed binary dates and the base32 signature.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// C40Charset is the basic C40 set; a digit indexes into it
const C40Charset = " 0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrInvalidC40 is returned for words whose digits fall outside the basic set
var ErrInvalidC40 = errors.New("invalid C40 word")

// DecodeC40Word unpacks one 16-bit word into three characters
func DecodeC40Word(hi, lo byte) (string, error) {
	v := int(hi)<<8 | int(lo)
	digits := [3]int{v / 1600, (v % 1600) / 40, v % 40}

	var b strings.Builder
	for _, d := range digits {
		if d >= len(C40Charset) {
			return "", fmt.Errorf("%w: digit %d in 0x%04X", ErrInvalidC40, d, v)
		}
		b.WriteByte(C40Charset[d])
	}
	return b.String(), nil
}

// DecodeC40 unpacks consecutive words. An odd trailing byte is an error.
func DecodeC40(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", fmt.Errorf("%w: odd length %d", ErrInvalidC40, len(data))
	}

	var b strings.Builder
	for i := 0; i < len(data); i += 2 {
		s, err := DecodeC40Word(data[i], data[i+1])
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// EncodeC40 packs s three characters per word, padding with spaces
func EncodeC40(s string) ([]byte, error) {
	for len(s)%3 != 0 {
		s += " "
	}

	out := make([]byte, 0, len(s)/3*2)
	for i := 0; i < len(s); i += 3 {
		v := 0
		for _, c := range []byte(s[i : i+3]) {
			d := strings.IndexByte(C40Charset, c)
			if d < 0 {
				return nil, fmt.Errorf("%w: character %q not in basic set", ErrInvalidC40, c)
			}
			v = v*40 + d
		}
		out = append(out, byte(v>>8), byte(v))
	}
	return out, nil
}
