// Package dedup provides the content-addressed idempotency check for
// ingested messages. The fingerprint is the sole dedup mechanism; nothing
// is flagged on the remote mailbox.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/talentreach/mailsync/internal/store"
)

// Fingerprint computes a stable content hash over the identifying fields
// of a message. Identical logical messages re-fetched across runs hash to
// the same value; the date is canonicalized to UTC RFC 3339 so the clock
// representation cannot perturb it.
func Fingerprint(messageID, from, subject string, date time.Time, provider string) string {
	fields := []string{
		messageID,
		from,
		subject,
		date.UTC().Format(time.RFC3339),
		provider,
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

// Deduplicator answers whether a fingerprint has been persisted before.
type Deduplicator struct {
	gateway store.Gateway
	logger  *slog.Logger
}

func New(gateway store.Gateway, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{gateway: gateway, logger: logger}
}

// IsNew reports whether no record exists for (accountID, fingerprint). On a
// lookup error the message is treated as new and the error surfaced; the
// insert path still skips on conflict, so a false positive here cannot
// create a duplicate row.
func (d *Deduplicator) IsNew(ctx context.Context, accountID, fingerprint string) (bool, error) {
	record, err := d.gateway.FindByFingerprint(ctx, accountID, fingerprint)
	if err != nil {
		d.logger.Warn("fingerprint lookup failed",
			"account_id", accountID,
			"error", err)
		return true, err
	}
	return record == nil, nil
}
