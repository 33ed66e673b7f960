package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned for date encodings that cannot be decoded
var ErrInvalidDate = errors.New("invalid date")

// absentHexDate marks a date that was not filled in by the issuer
const absentHexDate = "FFFF"

// Epoch is day zero of hex-offset dates
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const isoLayout = "2006-01-02"

// DecodeHexDate turns 4 hex characters (days since Epoch) into an ISO date.
// The absent marker decodes to an empty string.
func DecodeHexDate(s string) (string, error) {
	if len(s) != 4 {
		return "", fmt.Errorf("%w: hex date %q must be 4 characters", ErrInvalidDate, s)
	}
	if strings.EqualFold(s, absentHexDate) {
		return "", nil
	}

	days, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return "", fmt.Errorf("%w: hex date %q: %v", ErrInvalidDate, s, err)
	}
	return Epoch.AddDate(0, 0, int(days)).Format(isoLayout), nil
}

// EncodeHexDate is the inverse of DecodeHexDate
func EncodeHexDate(t time.Time) string {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(Epoch).Hours() / 24)
	return fmt.Sprintf("%04X", days)
}

// DecodeBinaryDate reads 3 bytes as a big-endian integer laid out as MMDDYYYY
func DecodeBinaryDate(b []byte) (string, error) {
	if len(b) != 3 {
		return "", fmt.Errorf("%w: binary date needs 3 bytes, got %d", ErrInvalidDate, len(b))
	}
	return BinaryDateFromUint(uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])), nil
}

// BinaryDateFromUint renders an already assembled 24-bit date value
func BinaryDateFromUint(v uint32) string {
	month := v / 1000000
	day := (v % 1000000) / 10000
	year := v % 10000
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// EncodeBinaryDate is the inverse of DecodeBinaryDate
func EncodeBinaryDate(t time.Time) []byte {
	v := uint32(t.Month())*1000000 + uint32(t.Day())*10000 + uint32(t.Year())
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

// ISOToDisplay rewrites YYYY-MM-DD as DD-MM-YYYY. Other shapes pass through.
func ISOToDisplay(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

// SplitISO returns the year, month and day parts of an ISO date
func SplitISO(iso string) (year, month, day string) {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}
