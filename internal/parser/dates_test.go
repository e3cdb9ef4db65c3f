package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 2, 15, 4, 5, 0, time.FixedZone("", -7*3600))

	got := ParseDate("Mon, 02 Jan 2023 15:04:05 -0700")
	assert.True(t, got.Equal(want))

	got = ParseDate("Mon, 02 Jan 2023 15:04:05 -0700 (MST)")
	assert.True(t, got.Equal(want))
}

func TestParseDateFallsBackToNow(t *testing.T) {
	for _, in := range []string{"", "not a date", "32/13/9999"} {
		got := ParseDate(in)
		assert.WithinDuration(t, time.Now().UTC(), got, time.Minute, "input %q", in)
	}
}
