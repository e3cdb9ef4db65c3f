// Package progress is the process-wide keyed store of ingestion progress.
// Each run owns its key for the run's lifetime; the store only needs to be
// safe for concurrent writers on different keys and readers on any key.
package progress

import (
	"context"
	"sync"
	"time"
)

// Stage names the orchestrator phase a run is currently in.
type Stage string

const (
	StageInit      Stage = "initializing"
	StageFetching  Stage = "fetching"
	StageFiltering Stage = "filtering"
	StageSaving    Stage = "saving"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// Snapshot is the latest progress of one ingestion run. It is overwritten,
// not appended, on every update; Percent is non-decreasing within a run and
// IsComplete flips to true exactly once at the terminal update.
type Snapshot struct {
	Stage      Stage     `json:"stage"`
	Message    string    `json:"message"`
	Percent    int       `json:"percent"`
	TotalFound int       `json:"total_found"`
	Processed  int       `json:"processed"`
	Matched    int       `json:"matched"`
	Duplicates int       `json:"duplicates"`
	Filtered   int       `json:"filtered"`
	Saved      int       `json:"saved"`
	Errors     []string  `json:"errors,omitempty"`
	IsComplete bool      `json:"is_complete"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store holds the latest snapshot per run key.
type Store struct {
	mu   sync.RWMutex
	runs map[string]Snapshot
}

func NewStore() *Store {
	return &Store{runs: make(map[string]Snapshot)}
}

// Update overwrites the snapshot for key, stamping UpdatedAt.
func (s *Store) Update(key string, snap Snapshot) {
	snap.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[key] = snap
}

// Get returns the latest snapshot for key.
func (s *Store) Get(key string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.runs[key]
	return snap, ok
}

// Delete removes the snapshot for key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, key)
}

// StartJanitor evicts completed snapshots older than ttl every interval
// until the context is cancelled. Without eviction the store grows without
// bound across runs.
func (s *Store) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ttl)
			}
		}
	}()
}

func (s *Store) sweep(ttl time.Duration) {
	cutoff := time.Now().UTC().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, snap := range s.runs {
		if snap.IsComplete && snap.UpdatedAt.Before(cutoff) {
			delete(s.runs, key)
		}
	}
}
