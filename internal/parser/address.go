package parser

import (
	"regexp"
	"strings"
)

// addrPattern matches a bare user@domain mailbox spec inside an arbitrary
// RFC 2822 address string ("Name <user@domain>", comma-separated lists, ...).
var addrPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ExtractAddresses reduces a raw address header value to its bare
// user@domain form(s). Multiple addresses are joined with ", ". When no
// mailbox spec can be found the original string is returned unchanged so
// that odd but non-empty senders are never silently dropped.
func ExtractAddresses(raw string) string {
	matches := addrPattern.FindAllString(raw, -1)
	if len(matches) == 0 {
		return raw
	}
	return strings.Join(matches, ", ")
}

// Normalize produces the canonical comparison form of an address string.
// Matching and storage must use the same reduction; normalizing an already
// normalized value is a no-op.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(ExtractAddresses(raw)))
}
