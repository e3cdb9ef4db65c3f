package parser

import (
	"net/mail"
	"strings"
	"time"
)

// dateFormats are tried in order when net/mail cannot parse a Date header.
// Providers in the wild emit a surprising variety of almost-RFC dates.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05",
	"Mon Jan 2 15:04:05 2006",
}

// ParseDate parses a Date header value, falling back to the current time
// when the value is absent or unparseable.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC()
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	// Some clients append a timezone name in parentheses that trips the
	// standard parsers.
	if idx := strings.Index(value, "("); idx != -1 {
		cleaned := strings.TrimSpace(value[:idx])
		for _, format := range dateFormats {
			if t, err := time.Parse(format, cleaned); err == nil {
				return t
			}
		}
	}

	return time.Now().UTC()
}
