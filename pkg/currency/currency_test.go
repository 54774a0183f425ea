package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTurkishFormats(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"4.350,00 TL", "4350"},
		{"300.000,50 TL", "300000.5"},
		{"300.000 TL", "300000"},
		{"4350 TL", "4350"},
		{"₺4.350", "4350"},
		{"1.234,56", "1234.56"},
		{"890 TL", "890"},
		{"300,00", "300"},
		{"12.000.000 TL", "12000000"},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			value, ok := Parse(tc.text)
			require.True(t, ok)
			assert.True(t, value.Equal(decimal.RequireFromString(tc.want)),
				"parsed %s, want %s", value, tc.want)
		})
	}
}

func TestParseUnparsableReturnsZero(t *testing.T) {
	for _, text := range []string{"", "abc", "TL", "₺", "fiyat yok"} {
		value, ok := Parse(text)
		assert.False(t, ok, "text %q", text)
		assert.True(t, value.IsZero(), "text %q", text)
	}
}

func TestParseIdempotentOnCanonicalForm(t *testing.T) {
	for _, text := range []string{"4.350,00 TL", "300.000 TL", "1.234,56", "4350"} {
		first, ok := Parse(text)
		require.True(t, ok)

		second, ok := Parse(Canonical(first))
		require.True(t, ok)
		assert.True(t, first.Equal(second), "%s re-parsed as %s", first, second)
	}
}
