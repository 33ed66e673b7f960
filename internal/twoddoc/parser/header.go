package parser

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/cryptobyte"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

// Header lengths by layout
const (
	headerLengthV1     = 22
	headerLengthV3     = 24
	headerLengthV4     = 26
	headerLengthBinary = 19
)

// IsBinaryEncoded decides between the binary and C40 layouts of version 4.
// The format carries no flag for this: any byte with the high bit set is
// taken as evidence of binary content. Keep every caller going through here
// so the policy can change in one place.
func IsBinaryEncoded(data []byte) bool {
	for _, b := range data {
		if b > 0x7F {
			return true
		}
	}
	return false
}

// HeaderLength returns the exact header size for a version and layout
func HeaderLength(version int, binary bool) (int, error) {
	switch version {
	case 1, 2:
		return headerLengthV1, nil
	case 3:
		return headerLengthV3, nil
	case 4:
		if binary {
			return headerLengthBinary, nil
		}
		return headerLengthV4, nil
	default:
		return 0, fmt.Errorf("%w: %d", domain.ErrUnsupportedVersion, version)
	}
}

// ParseHeader reads the header at the front of a payload
func ParseHeader(data []byte) (*domain.Header, error) {
	if len(data) < 4 || string(data[:2]) != domain.DocumentMarker {
		return nil, fmt.Errorf("%w: missing %s marker", domain.ErrMalformedHeader, domain.DocumentMarker)
	}

	version, err := strconv.Atoi(string(data[2:4]))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedVersion, data[2:4])
	}

	binary := version == 4 && IsBinaryEncoded(data)
	length, err := HeaderLength(version, binary)
	if err != nil {
		return nil, err
	}
	if len(data) < length {
		return nil, fmt.Errorf("%w: %d bytes, version %d needs %d", domain.ErrMalformedHeader, len(data), version, length)
	}

	if binary {
		return parseBinaryHeader(data[:length])
	}
	return parseTextHeader(data[:length], version)
}

func parseTextHeader(data []byte, version int) (*domain.Header, error) {
	issuance, err := codec.DecodeHexDate(string(data[12:16]))
	if err != nil {
		return nil, fmt.Errorf("%w: issuance date: %v", domain.ErrMalformedHeader, err)
	}
	signature, err := codec.DecodeHexDate(string(data[16:20]))
	if err != nil {
		return nil, fmt.Errorf("%w: signature date: %v", domain.ErrMalformedHeader, err)
	}

	h := &domain.Header{
		Version:       version,
		HeaderLength:  len(data),
		CAID:          string(data[4:8]),
		CertID:        string(data[8:12]),
		IssuanceDate:  issuance,
		SignatureDate: signature,
		DocTypeID:     string(data[20:22]),
		PerimeterID:   "01",
		CountryID:     "FR",
	}
	if version >= 3 {
		h.PerimeterID = string(data[22:24])
	}
	if version == 4 {
		h.CountryID = string(data[24:26])
	}
	return h, nil
}

// parseBinaryHeader reads the 19-byte layout:
//
//	DC 04 | country C40 | CA C40 | cert C40 | issuance (3) | signature (3) | doc type (1) | perimeter (2)
func parseBinaryHeader(data []byte) (*domain.Header, error) {
	s := cryptobyte.String(data[4:])

	var countryWord, caWord, certWord uint16
	var issuance, signature uint32
	var docType uint8
	var perimeter []byte

	if !s.ReadUint16(&countryWord) || !s.ReadUint16(&caWord) || !s.ReadUint16(&certWord) ||
		!s.ReadUint24(&issuance) || !s.ReadUint24(&signature) ||
		!s.ReadUint8(&docType) || !s.ReadBytes(&perimeter, 2) {
		return nil, fmt.Errorf("%w: truncated binary header", domain.ErrMalformedHeader)
	}

	country, err := decodeWord(countryWord)
	if err != nil {
		return nil, fmt.Errorf("%w: country: %v", domain.ErrMalformedHeader, err)
	}
	ca, err := decodeWord(caWord)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate authority: %v", domain.ErrMalformedHeader, err)
	}
	cert, err := decodeWord(certWord)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate: %v", domain.ErrMalformedHeader, err)
	}

	return &domain.Header{
		Version:       4,
		HeaderLength:  headerLengthBinary,
		Binary:        true,
		CAID:          ca,
		CertID:        cert,
		IssuanceDate:  codec.BinaryDateFromUint(issuance),
		SignatureDate: codec.BinaryDateFromUint(signature),
		DocTypeID:     fmt.Sprintf("%02X", docType),
		PerimeterID:   string(perimeter),
		CountryID:     country,
	}, nil
}

func decodeWord(w uint16) (string, error) {
	s, err := codec.DecodeC40Word(byte(w>>8), byte(w))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, " "), nil
}
