package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAddresses(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare address", "brand@x.com", "brand@x.com"},
		{"display name", "Brand Person <brand@x.com>", "brand@x.com"},
		{"multiple addresses", "a@x.com, Someone <b@y.org>", "a@x.com, b@y.org"},
		{"no address falls back to raw", "totally not an address", "totally not an address"},
		{"empty", "", ""},
		{"plus addressing", "Tag <user+tag@example.co.uk>", "user+tag@example.co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAddresses(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "brand@x.com", Normalize("Brand <BRAND@X.COM>"))
	assert.Equal(t, "brand@x.com", Normalize("  brand@x.com  "))
	assert.Equal(t, "", Normalize(""))
}

// Storage formatting and match normalization must stay interchangeable: a
// value that went through ExtractAddresses normalizes to the same thing as
// the raw input it came from.
func TestNormalizeSymmetry(t *testing.T) {
	inputs := []string{
		"Brand <BRAND@X.COM>",
		"a@x.com, B <b@y.org>",
		"plain@addr.io",
		"weird value",
	}
	for _, in := range inputs {
		stored := ExtractAddresses(in)
		assert.Equal(t, Normalize(in), Normalize(stored), "input %q", in)
	}
}
