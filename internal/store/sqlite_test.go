package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	// A named memory database keeps the schema alive across pooled
	// connections while staying private to this test.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	s, err := NewSQLite(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(accountID, fingerprint, messageID string) EmailRecord {
	return EmailRecord{
		AccountID:   accountID,
		Fingerprint: fingerprint,
		MessageID:   messageID,
		FromAddr:    "brand@x.com",
		ToAddr:      "me@crm.io",
		Subject:     "Hello",
		SentAt:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		TextBody:    "body",
		Provider:    "gmail",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCreateManyAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.CreateMany(ctx, []EmailRecord{
		record("acct", "fp-1", "m1"),
		record("acct", "fp-2", "m2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	found, err := s.FindByFingerprint(ctx, "acct", "fp-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "m1", found.MessageID)
	assert.Equal(t, "brand@x.com", found.FromAddr)

	missing, err := s.FindByFingerprint(ctx, "acct", "fp-absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateManySkipsConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.CreateMany(ctx, []EmailRecord{record("acct", "fp-1", "m1")})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	// Same fingerprint again, plus one new row: only the new row lands.
	inserted, err = s.CreateMany(ctx, []EmailRecord{
		record("acct", "fp-1", "m1"),
		record("acct", "fp-3", "m3"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestCreateManyFingerprintScopedByAccount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.CreateMany(ctx, []EmailRecord{
		record("acct-a", "fp-1", "m1"),
		record("acct-b", "fp-1", "m1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestCreateManyEmpty(t *testing.T) {
	s := openTestStore(t)

	inserted, err := s.CreateMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestCreateManyContactReference(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	contactID := int64(7)
	rec := record("acct", "fp-1", "m1")
	rec.ContactID = &contactID
	rec.Matched = true

	inserted, err := s.CreateMany(ctx, []EmailRecord{rec})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	found, err := s.FindByFingerprint(ctx, "acct", "fp-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Matched)
	require.NotNil(t, found.ContactID)
	assert.Equal(t, contactID, *found.ContactID)
}

func TestFindRoster(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contacts (account_id, email, display_id) VALUES (?, ?, ?), (?, ?, ?), (?, ?, NULL)",
		"acct", "brand@x.com", "brand", "acct", "other@y.com", "other", "other-acct", "elsewhere@z.net")
	require.NoError(t, err)

	contacts, err := s.FindRoster(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "brand@x.com", contacts[0].Email)
	assert.Equal(t, "brand", contacts[0].DisplayID)
	assert.Equal(t, "other@y.com", contacts[1].Email)

	empty, err := s.FindRoster(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
