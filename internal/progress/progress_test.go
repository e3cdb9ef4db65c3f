package progress

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpdateOverwrites(t *testing.T) {
	s := NewStore()

	s.Update("acct", Snapshot{Stage: StageInit, Percent: 5})
	s.Update("acct", Snapshot{Stage: StageFetching, Percent: 40})

	snap, ok := s.Get("acct")
	require.True(t, ok)
	assert.Equal(t, StageFetching, snap.Stage)
	assert.Equal(t, 40, snap.Percent)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestStoreGetMissing(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestStoreConcurrentDistinctKeys(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("run-%d", i)
			for p := 0; p <= 100; p += 10 {
				s.Update(key, Snapshot{Stage: StageFiltering, Percent: p})
				s.Get(key)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		snap, ok := s.Get(fmt.Sprintf("run-%d", i))
		require.True(t, ok)
		assert.Equal(t, 100, snap.Percent)
	}
}

func TestSweepEvictsOnlyCompletedOldRuns(t *testing.T) {
	s := NewStore()

	s.Update("done-old", Snapshot{Stage: StageDone, IsComplete: true})
	s.Update("running-old", Snapshot{Stage: StageFetching})

	// Age both entries past the ttl.
	s.mu.Lock()
	for _, key := range []string{"done-old", "running-old"} {
		snap := s.runs[key]
		snap.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
		s.runs[key] = snap
	}
	s.mu.Unlock()

	s.Update("done-fresh", Snapshot{Stage: StageDone, IsComplete: true})

	s.sweep(time.Hour)

	_, ok := s.Get("done-old")
	assert.False(t, ok, "completed stale run should be evicted")
	_, ok = s.Get("running-old")
	assert.True(t, ok, "incomplete run is never evicted")
	_, ok = s.Get("done-fresh")
	assert.True(t, ok, "fresh runs are kept")
}
