package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
)

func TestC40_RoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FR0", "FR0"},
		{"FR", "FR "},
		{"ABCDEF", "ABCDEF"},
		{"Z9 ", "Z9 "},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			encoded, err := codec.EncodeC40(tt.in)
			require.NoError(t, err)
			assert.Len(t, encoded, (len(tt.want)/3)*2)

			got, err := codec.DecodeC40(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeC40Word(t *testing.T) {
	// F=16, R=28, space=0 -> 16*1600 + 28*40 = 26720 = 0x6860
	got, err := codec.DecodeC40Word(0x68, 0x60)
	require.NoError(t, err)
	assert.Equal(t, "FR ", got)

	_, err = codec.DecodeC40Word(0xFF, 0xFF)
	assert.ErrorIs(t, err, codec.ErrInvalidC40)

	_, err = codec.DecodeC40([]byte{0x68})
	assert.ErrorIs(t, err, codec.ErrInvalidC40)

	_, err = codec.EncodeC40("fr")
	assert.ErrorIs(t, err, codec.ErrInvalidC40)
}

func TestHexDate(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"0000", "2000-01-01"},
		{"0001", "2000-01-02"},
		{"016D", "2000-12-31"},
		{"016E", "2001-01-01"},
		{"1F40", "2021-11-26"},
		{"ffff", ""},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			got, err := codec.DecodeHexDate(tt.hex)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := codec.DecodeHexDate("12G4")
	assert.ErrorIs(t, err, codec.ErrInvalidDate)

	_, err = codec.DecodeHexDate("123")
	assert.ErrorIs(t, err, codec.ErrInvalidDate)
}

func TestHexDate_RoundTrip(t *testing.T) {
	for days := 0; days < 0xFFFF; days += 97 {
		date := codec.Epoch.AddDate(0, 0, days)
		hex := codec.EncodeHexDate(date)

		got, err := codec.DecodeHexDate(hex)
		require.NoError(t, err, "offset %d", days)
		assert.Equal(t, date.Format("2006-01-02"), got, "offset %d", days)
	}
}

func TestBinaryDate(t *testing.T) {
	date := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	encoded := codec.EncodeBinaryDate(date)
	require.Len(t, encoded, 3)

	got, err := codec.DecodeBinaryDate(encoded)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", got)

	// 01 02 2023 -> 1022023
	assert.Equal(t, "2023-01-02", codec.BinaryDateFromUint(1022023))

	_, err = codec.DecodeBinaryDate([]byte{1, 2})
	assert.ErrorIs(t, err, codec.ErrInvalidDate)
}

func TestISOHelpers(t *testing.T) {
	assert.Equal(t, "31-12-2024", codec.ISOToDisplay("2024-12-31"))
	assert.Equal(t, "", codec.ISOToDisplay(""))

	y, m, d := codec.SplitISO("2024-12-31")
	assert.Equal(t, []string{"2024", "12", "31"}, []string{y, m, d})
}

func TestBase32(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i * 7)
	}

	encoded := codec.EncodeBase32(raw)
	assert.Len(t, encoded, 103)
	assert.Equal(t, raw, codec.DecodeBase32(encoded))

	t.Run("lenient input", func(t *testing.T) {
		noisy := "  " + encoded[:50] + "\n" + encoded[50:] + "===="
		assert.Equal(t, raw, codec.DecodeBase32(noisy))
	})

	t.Run("lowercase", func(t *testing.T) {
		assert.Equal(t, []byte("hi"), codec.DecodeBase32("nbuq"))
	})

	t.Run("dangling characters", func(t *testing.T) {
		// floor(n*5/8) bytes for every length
		for n := 0; n <= 16; n++ {
			got := codec.DecodeBase32(encoded[:n])
			assert.Len(t, got, n*5/8, "length %d", n)
		}
	})
}
