// Package store is the persistence gateway consumed by the ingestion
// pipeline: fingerprint lookups, batch inserts with conflict skipping, and
// roster reads.
package store

import (
	"context"
	"time"

	"github.com/talentreach/mailsync/internal/models"
)

// EmailRecord is one persisted ingested message. (account_id, fingerprint)
// is the idempotency key.
type EmailRecord struct {
	ID          int64     `db:"id"`
	AccountID   string    `db:"account_id"`
	Fingerprint string    `db:"fingerprint"`
	MessageID   string    `db:"message_id"`
	FromAddr    string    `db:"from_addr"`
	ToAddr      string    `db:"to_addr"`
	Subject     string    `db:"subject"`
	SentAt      time.Time `db:"sent_at"`
	TextBody    string    `db:"text_body"`
	HTMLBody    string    `db:"html_body"`
	Provider    string    `db:"provider"`
	ContactID   *int64    `db:"contact_id"`
	Matched     bool      `db:"matched"`
	ParseFailed bool      `db:"parse_failed"`
	CreatedAt   time.Time `db:"created_at"`
}

// Gateway is the contract the orchestrator and deduplicator depend on.
type Gateway interface {
	// FindByFingerprint returns the record for (accountID, fingerprint),
	// or nil when none exists.
	FindByFingerprint(ctx context.Context, accountID, fingerprint string) (*EmailRecord, error)

	// CreateMany inserts the records in one batch, silently skipping any
	// record whose idempotency key collides, and returns the number
	// actually inserted. Individual insert failures do not abort the rest
	// of the batch.
	CreateMany(ctx context.Context, records []EmailRecord) (int, error)

	// FindRoster returns the account's contact roster.
	FindRoster(ctx context.Context, accountID string) ([]models.ContactRecord, error)

	Close() error
}
