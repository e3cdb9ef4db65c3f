package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/talentreach/mailsync/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS emails (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id   TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	message_id   TEXT,
	from_addr    TEXT,
	to_addr      TEXT,
	subject      TEXT,
	sent_at      TIMESTAMP,
	text_body    TEXT,
	html_body    TEXT,
	provider     TEXT,
	contact_id   INTEGER,
	matched      BOOLEAN NOT NULL DEFAULT 0,
	parse_failed BOOLEAN NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL,
	UNIQUE (account_id, fingerprint)
);

CREATE TABLE IF NOT EXISTS contacts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT NOT NULL,
	email      TEXT NOT NULL,
	display_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_contacts_account ON contacts (account_id);
`

const insertEmail = `
INSERT OR IGNORE INTO emails (
	account_id, fingerprint, message_id, from_addr, to_addr, subject,
	sent_at, text_body, html_body, provider, contact_id, matched,
	parse_failed, created_at
) VALUES (
	:account_id, :fingerprint, :message_id, :from_addr, :to_addr, :subject,
	:sent_at, :text_body, :html_body, :provider, :contact_id, :matched,
	:parse_failed, :created_at
)`

// SQLite is the sqlx-backed Gateway implementation.
type SQLite struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLite opens (and if necessary initializes) the database at dsn.
func NewSQLite(dsn string, logger *slog.Logger) (*SQLite, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) FindByFingerprint(ctx context.Context, accountID, fingerprint string) (*EmailRecord, error) {
	var record EmailRecord
	err := s.db.GetContext(ctx, &record,
		"SELECT * FROM emails WHERE account_id = ? AND fingerprint = ?",
		accountID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fingerprint lookup failed: %w", err)
	}
	return &record, nil
}

func (s *SQLite) CreateMany(ctx context.Context, records []EmailRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	var rowErrs []error
	for i := range records {
		rec := records[i]
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}

		result, err := tx.NamedExecContext(ctx, insertEmail, rec)
		if err != nil {
			// One bad row does not abort the batch.
			s.logger.Warn("failed to insert email record",
				"account_id", rec.AccountID,
				"message_id", rec.MessageID,
				"error", err)
			rowErrs = append(rowErrs, err)
			continue
		}

		affected, err := result.RowsAffected()
		if err == nil && affected > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch insert: %w", err)
	}

	return inserted, errors.Join(rowErrs...)
}

func (s *SQLite) FindRoster(ctx context.Context, accountID string) ([]models.ContactRecord, error) {
	var contacts []models.ContactRecord
	err := s.db.SelectContext(ctx, &contacts,
		"SELECT id, account_id, email, COALESCE(display_id, '') AS display_id FROM contacts WHERE account_id = ? ORDER BY id",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("roster lookup failed: %w", err)
	}
	return contacts, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
