package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

// ErrUnformattable is returned when a value does not fit its declared type.
// The cleaned value is kept as the display value in that case.
var ErrUnformattable = errors.New("value cannot be formatted")

const currencySuffix = " €"

// groupings re-space 13 character references: XX XX XXXXXXX XX and XX XX XXX XXX XXX
var groupings = map[string][]int{
	"44": {2, 2, 7, 2},
	"47": {2, 2, 3, 3, 3},
	"49": {2, 2, 3, 3, 3},
}

// Format renders a cleaned value for display according to the field's type.
// The field ID is needed because a few string fields have their own layout.
func Format(fieldID, value string, header *domain.Header) (string, error) {
	def, ok := catalog.Field(fieldID)
	if !ok {
		return value, nil
	}
	return FormatAs(def.Type, fieldID, value, header)
}

// FormatAs renders value as the given type. Date values are decoded with the
// encoding the header announces.
func FormatAs(typ domain.FieldType, fieldID, value string, header *domain.Header) (string, error) {
	switch typ {
	case domain.FieldTypeDate:
		return formatDate(fieldID, value, header)

	case domain.FieldTypeFormattedDate:
		if len(value) != 8 {
			return value, fmt.Errorf("%w: field %s: %q is not DDMMYYYY", ErrUnformattable, fieldID, value)
		}
		return value[0:2] + "-" + value[2:4] + "-" + value[4:8], nil

	case domain.FieldTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return value, fmt.Errorf("%w: field %s: %v", ErrUnformattable, fieldID, err)
		}
		return strconv.Itoa(n), nil

	case domain.FieldTypeAmount:
		return strings.TrimSpace(value) + currencySuffix, nil

	case domain.FieldTypeString:
		if sizes, ok := groupings[fieldID]; ok && len(value) == 13 {
			return group(value, sizes), nil
		}
		return value, nil

	default:
		// year, phone
		return value, nil
	}
}

func formatDate(fieldID, value string, header *domain.Header) (string, error) {
	var iso string
	var err error
	if header != nil && header.Version == 4 && IsBinaryEncoded([]byte(value)) {
		iso, err = codec.DecodeBinaryDate([]byte(value))
	} else {
		iso, err = codec.DecodeHexDate(value)
	}
	if err != nil {
		return value, fmt.Errorf("%w: field %s: %v", ErrUnformattable, fieldID, err)
	}
	return codec.ISOToDisplay(iso), nil
}

func group(v string, sizes []int) string {
	parts := make([]string, 0, len(sizes))
	pos := 0
	for _, n := range sizes {
		parts = append(parts, v[pos:pos+n])
		pos += n
	}
	return strings.Join(parts, " ")
}
