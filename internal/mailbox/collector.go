package mailbox

import (
	"bytes"
	"context"
	"sync"

	"github.com/talentreach/mailsync/internal/models"
)

// Collector accumulates the raw byte stream of each in-flight message,
// keyed by sequence number. Message streams may open, grow and seal in any
// interleaving. The fetch is complete only when the end-of-fetch signal has
// arrived AND every opened stream has been sealed; the two events can occur
// in either order. End-of-fetch with zero streams completes immediately.
type Collector struct {
	provider string

	mu        sync.Mutex
	open      map[uint32]*bytes.Buffer
	sealedSet map[uint32]struct{}
	sealed    []models.RawMessage
	fetchDone bool
	completed bool
	done      chan struct{}
}

// NewCollector creates a collector for one provider's fetch.
func NewCollector(provider string) *Collector {
	return &Collector{
		provider:  provider,
		open:      make(map[uint32]*bytes.Buffer),
		sealedSet: make(map[uint32]struct{}),
		done:      make(chan struct{}),
	}
}

// Append adds a chunk to the message stream for seq, opening it on first
// sight. Appending to a sealed stream is a no-op.
func (c *Collector) Append(seq uint32, chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.open[seq]
	if !ok {
		if c.isSealed(seq) {
			return
		}
		buf = new(bytes.Buffer)
		c.open[seq] = buf
	}
	buf.Write(chunk)
}

// Seal marks the message stream for seq as complete and makes its buffer
// immutable. Sealing an unopened stream records an empty message.
func (c *Collector) Seal(seq uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isSealed(seq) {
		return
	}

	var body []byte
	if buf, ok := c.open[seq]; ok {
		body = buf.Bytes()
		delete(c.open, seq)
	}
	c.sealedSet[seq] = struct{}{}
	c.sealed = append(c.sealed, models.RawMessage{
		SeqNum:   seq,
		Provider: c.provider,
		Body:     body,
	})

	c.maybeComplete()
}

// FinishFetch records the protocol's end-of-fetch signal.
func (c *Collector) FinishFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetchDone = true
	c.maybeComplete()
}

// Wait blocks until the fetch is complete or the context expires, then
// returns the sealed buffers. Order follows seal order, not sequence order.
func (c *Collector) Wait(ctx context.Context) ([]models.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RawMessage, len(c.sealed))
	copy(out, c.sealed)
	return out, nil
}

func (c *Collector) isSealed(seq uint32) bool {
	_, ok := c.sealedSet[seq]
	return ok
}

// maybeComplete closes the done channel once, under c.mu.
func (c *Collector) maybeComplete() {
	if c.completed || !c.fetchDone || len(c.open) > 0 {
		return
	}
	c.completed = true
	close(c.done)
}
