// Package roster matches fetched messages against the account's known
// contacts.
package roster

import (
	"github.com/talentreach/mailsync/internal/models"
	"github.com/talentreach/mailsync/internal/parser"
)

// Match returns the first roster entry whose normalized address equals the
// message's normalized from or to address, scanning the roster in the
// caller-supplied order. Both sides go through parser.Normalize, the same
// routine used when formatting addresses for storage; any divergence there
// would silently break matching. Returns nil when nothing matches.
func Match(from, to string, contacts []models.ContactRecord) *models.ContactRecord {
	normFrom := parser.Normalize(from)
	normTo := parser.Normalize(to)

	for i := range contacts {
		entry := parser.Normalize(contacts[i].Email)
		if entry == "" {
			continue
		}
		if entry == normFrom || entry == normTo {
			return &contacts[i]
		}
	}
	return nil
}
