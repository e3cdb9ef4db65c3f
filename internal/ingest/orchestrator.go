// Package ingest drives one ingestion run end to end: fetch from every
// configured provider, filter through dedup and roster matching, persist
// the qualifying batch, and report progress throughout.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talentreach/mailsync/internal/dedup"
	"github.com/talentreach/mailsync/internal/mailbox"
	"github.com/talentreach/mailsync/internal/models"
	"github.com/talentreach/mailsync/internal/progress"
	"github.com/talentreach/mailsync/internal/roster"
	"github.com/talentreach/mailsync/internal/store"
)

// Provider names one configured mailbox source for a run.
type Provider struct {
	Name        string
	Protocol    string
	Credentials mailbox.Credentials
}

// Options tune a single run.
type Options struct {
	// SaveUnmatched persists messages that match no roster entry instead
	// of dropping them.
	SaveUnmatched bool
	// FetchTimeout bounds each provider's session independently.
	FetchTimeout time.Duration
	// ProgressEvery is how many filtered messages pass between progress
	// updates.
	ProgressEvery int
}

// Result is what a run always returns, successful or degraded. Callers
// must inspect Errors even on success to detect partial degradation.
type Result struct {
	Fetched    int      `json:"fetched"`
	Matched    int      `json:"matched"`
	Saved      int      `json:"saved"`
	Duplicates int      `json:"duplicates"`
	Filtered   int      `json:"filtered"`
	Errors     []string `json:"errors,omitempty"`
}

// SessionFactory builds a mailbox session; swapped out in tests.
type SessionFactory func(provider, protocol string, creds mailbox.Credentials, timeout time.Duration, logger *slog.Logger) (mailbox.Session, error)

// ProgressSink receives the run's progress snapshots. The orchestrator is
// the sole writer for its account key during the run.
type ProgressSink interface {
	Update(key string, snap progress.Snapshot)
}

// Orchestrator runs ingestions against one persistence gateway and one
// progress store.
type Orchestrator struct {
	gateway    store.Gateway
	progress   ProgressSink
	logger     *slog.Logger
	newSession SessionFactory
}

func New(gateway store.Gateway, reporter ProgressSink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:    gateway,
		progress:   reporter,
		logger:     logger,
		newSession: mailbox.New,
	}
}

// Run executes the four phases strictly in sequence: fetch (parallel
// across providers), filter, persist, terminal progress. Provider and
// persistence failures are collected, never fatal; only invalid inputs
// abort the run.
func (o *Orchestrator) Run(ctx context.Context, accountID string, providers []Provider, contacts []models.ContactRecord, opts Options) (*Result, error) {
	if accountID == "" {
		return nil, &ValidationError{Msg: "account id is required"}
	}
	if o.gateway == nil {
		return nil, &ValidationError{Msg: "persistence gateway is required"}
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Minute
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}

	runID := uuid.NewString()
	o.logger.Info("starting ingestion run",
		"run_id", runID,
		"account_id", accountID,
		"providers", len(providers),
	)

	result := &Result{}
	snap := progress.Snapshot{
		Stage:   progress.StageInit,
		Message: "starting ingestion",
		Percent: 5,
	}
	o.progress.Update(accountID, snap)

	// Terminal progress is written exactly once, whatever path ends the
	// run.
	finished := false
	finish := func(stage progress.Stage, message string) {
		if finished {
			return
		}
		finished = true
		snap.Stage = stage
		snap.Message = message
		snap.Percent = 100
		snap.IsComplete = true
		o.syncCounts(&snap, result)
		o.progress.Update(accountID, snap)
	}
	defer func() {
		finish(progress.StageFailed, "ingestion aborted")
	}()

	// Fetch phase: one session per provider, concurrently. A provider
	// failure is recorded and the run continues with the rest.
	snap.Stage = progress.StageFetching
	snap.Message = "fetching mailboxes"
	snap.Percent = 10
	o.progress.Update(accountID, snap)

	var (
		mu      sync.Mutex
		fetched []models.FetchedEmail
	)
	var g errgroup.Group
	for _, p := range providers {
		if p.Credentials.Host == "" || p.Credentials.Username == "" {
			o.logger.Info("skipping provider without credentials",
				"account_id", accountID,
				"provider", p.Name)
			continue
		}
		p := p
		g.Go(func() error {
			emails, err := o.fetchProvider(ctx, p, opts.FetchTimeout)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				return nil
			}
			fetched = append(fetched, emails...)
			return nil
		})
	}
	_ = g.Wait()

	result.Fetched = len(fetched)
	snap.TotalFound = len(fetched)
	snap.Message = fmt.Sprintf("fetched %d messages", len(fetched))
	snap.Percent = 40
	o.syncCounts(&snap, result)
	o.progress.Update(accountID, snap)

	// Filter phase: fingerprint, dedup, roster match.
	snap.Stage = progress.StageFiltering
	snap.Message = "filtering messages"
	deduper := dedup.New(o.gateway, o.logger)

	var queue []store.EmailRecord
	for i, email := range fetched {
		fingerprint := dedup.Fingerprint(email.MessageID, email.From, email.Subject, email.Date, email.Provider)

		isNew, err := deduper.IsNew(ctx, accountID, fingerprint)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("dedup check: %v", err))
		}

		if !isNew {
			result.Duplicates++
		} else {
			contact := roster.Match(email.From, email.To, contacts)
			if contact != nil {
				result.Matched++
			}
			if contact != nil || opts.SaveUnmatched {
				queue = append(queue, buildRecord(accountID, fingerprint, email, contact))
			} else {
				result.Filtered++
			}
		}

		snap.Processed = i + 1
		if (i+1)%opts.ProgressEvery == 0 || i == len(fetched)-1 {
			snap.Percent = 40 + (i+1)*40/len(fetched)
			o.syncCounts(&snap, result)
			o.progress.Update(accountID, snap)
		}
	}

	// Persist phase: one batch, conflicting rows skipped, row failures
	// recorded without aborting the batch.
	snap.Stage = progress.StageSaving
	snap.Message = fmt.Sprintf("saving %d messages", len(queue))
	snap.Percent = 90
	o.syncCounts(&snap, result)
	o.progress.Update(accountID, snap)

	if len(queue) > 0 {
		inserted, err := o.gateway.CreateMany(ctx, queue)
		result.Saved = inserted
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist: %v", err))
		}
	}

	o.logger.Info("ingestion run complete",
		"run_id", runID,
		"account_id", accountID,
		"fetched", result.Fetched,
		"matched", result.Matched,
		"saved", result.Saved,
		"duplicates", result.Duplicates,
		"filtered", result.Filtered,
		"errors", len(result.Errors),
	)

	finish(progress.StageDone, fmt.Sprintf("ingestion complete: %d saved", result.Saved))
	return result, nil
}

func (o *Orchestrator) fetchProvider(ctx context.Context, p Provider, timeout time.Duration) ([]models.FetchedEmail, error) {
	session, err := o.newSession(p.Name, p.Protocol, p.Credentials, timeout, o.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}

	emails, err := session.FetchAll(ctx)
	if err != nil {
		o.logger.Warn("provider fetch failed",
			"provider", p.Name,
			"error", err)
		return nil, err
	}
	return emails, nil
}

func (o *Orchestrator) syncCounts(snap *progress.Snapshot, result *Result) {
	snap.Matched = result.Matched
	snap.Duplicates = result.Duplicates
	snap.Filtered = result.Filtered
	snap.Saved = result.Saved
	snap.Errors = result.Errors
}

func buildRecord(accountID, fingerprint string, email models.FetchedEmail, contact *models.ContactRecord) store.EmailRecord {
	record := store.EmailRecord{
		AccountID:   accountID,
		Fingerprint: fingerprint,
		MessageID:   email.MessageID,
		FromAddr:    email.From,
		ToAddr:      email.To,
		Subject:     email.Subject,
		SentAt:      email.Date,
		TextBody:    email.TextBody,
		HTMLBody:    email.HTMLBody,
		Provider:    email.Provider,
		Matched:     contact != nil,
		ParseFailed: email.ParseFailed,
		CreatedAt:   time.Now().UTC(),
	}
	if contact != nil {
		record.ContactID = &contact.ID
	}
	return record
}
