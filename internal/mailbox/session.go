// Package mailbox owns the per-provider fetch session: one authenticated
// connection, one bulk fetch, bounded lifetime. A session is created per
// ingestion run and torn down on completion, error or deadline.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talentreach/mailsync/internal/models"
)

// State tracks the connection lifecycle of a session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateFetching
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFetching:
		return "fetching"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Credentials holds what a session needs to open one mailbox. Never logged
// and never persisted.
type Credentials struct {
	Host          string
	Port          int
	Username      string
	Secret        string
	TLSServerName string
}

// Session fetches every message in one mailbox. FetchAll resolves exactly
// once; completeness is all-or-nothing per session.
type Session interface {
	Provider() string
	FetchAll(ctx context.Context) ([]models.FetchedEmail, error)
}

// New builds a session for the given protocol. An empty protocol defaults
// to IMAP.
func New(provider, protocol string, creds Credentials, timeout time.Duration, logger *slog.Logger) (Session, error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	switch strings.ToLower(protocol) {
	case "", "imap":
		return &imapSession{
			provider: provider,
			creds:    creds,
			timeout:  timeout,
			logger:   logger,
		}, nil
	case "pop3":
		return &pop3Session{
			provider: provider,
			creds:    creds,
			timeout:  timeout,
			logger:   logger,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported mailbox protocol: %s", protocol)
	}
}

// stateHolder gives both session types the same observable state field.
type stateHolder struct {
	state atomic.Int32
}

func (h *stateHolder) setState(s State) { h.state.Store(int32(s)) }

// State reports the current connection state.
func (h *stateHolder) State() State { return State(h.state.Load()) }
