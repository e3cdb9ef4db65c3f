package mailbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/knadh/go-pop3"

	"github.com/talentreach/mailsync/internal/models"
	"github.com/talentreach/mailsync/internal/parser"
)

// pop3Session is the POP3 variant of Session for providers that only offer
// POP3 app access. Unlike IMAP there is no multiplexed stream; messages are
// retrieved one RETR at a time, which is what the protocol allows.
type pop3Session struct {
	stateHolder

	provider string
	creds    Credentials
	timeout  time.Duration
	logger   *slog.Logger

	// exchange runs the protocol conversation; swapped out in tests.
	exchange func(ctx context.Context) ([]models.FetchedEmail, error)
}

func (s *pop3Session) Provider() string { return s.provider }

// FetchAll enforces the session deadline around the whole conversation.
// go-pop3 commands block with no read deadline and the library exposes no
// connection to tear down, so when the deadline fires the conversation
// goroutine is abandoned; its deferred Quit runs whenever the server
// unblocks it.
func (s *pop3Session) FetchAll(ctx context.Context) ([]models.FetchedEmail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run := s.exchange
	if run == nil {
		run = s.fetch
	}

	type outcome struct {
		emails []models.FetchedEmail
		err    error
	}
	resCh := make(chan outcome, 1)
	go func() {
		emails, err := run(ctx)
		resCh <- outcome{emails: emails, err: err}
	}()

	select {
	case res := <-resCh:
		return res.emails, res.err
	case <-ctx.Done():
		s.setState(StateDisconnected)
		return nil, &TimeoutError{Provider: s.provider}
	}
}

func (s *pop3Session) fetch(ctx context.Context) ([]models.FetchedEmail, error) {
	s.setState(StateConnecting)
	s.logger.Info("connecting to mailbox",
		"provider", s.provider,
		"host", s.creds.Host,
		"port", s.creds.Port,
	)

	p := pop3.New(pop3.Opt{
		Host:       s.creds.Host,
		Port:       s.creds.Port,
		TLSEnabled: true,
		// Same trust-on-first-use relaxation as the IMAP session.
		TLSSkipVerify: true,
		DialTimeout:   30 * time.Second,
	})

	conn, err := p.NewConn()
	if err != nil {
		s.setState(StateDisconnected)
		return nil, s.failure(ctx, err, func(err error) error {
			return &ConnectionError{Provider: s.provider, Err: err}
		})
	}

	var once sync.Once
	finalize := func() {
		once.Do(func() {
			s.setState(StateClosing)
			_ = conn.Quit()
			s.setState(StateDisconnected)
		})
	}
	defer finalize()

	if err := conn.Auth(s.creds.Username, s.creds.Secret); err != nil {
		return nil, s.failure(ctx, err, func(err error) error {
			return &ConnectionError{Provider: s.provider, Err: err}
		})
	}
	s.setState(StateReady)

	count, _, err := conn.Stat()
	if err != nil {
		return nil, s.failure(ctx, err, func(err error) error {
			return &MailboxError{Provider: s.provider, Err: err}
		})
	}
	if count == 0 {
		s.logger.Info("mailbox is empty", "provider", s.provider)
		return nil, nil
	}

	s.setState(StateFetching)
	s.logger.Info("fetching messages",
		"provider", s.provider,
		"count", count,
	)

	ids, err := conn.List(0)
	if err != nil {
		return nil, s.failure(ctx, err, func(err error) error {
			return &FetchError{Provider: s.provider, Err: err}
		})
	}

	collector := NewCollector(s.provider)
	for _, msg := range ids {
		if ctx.Err() != nil {
			return nil, &TimeoutError{Provider: s.provider}
		}

		buf, err := conn.RetrRaw(msg.ID)
		if err != nil {
			return nil, s.failure(ctx, err, func(err error) error {
				return &FetchError{Provider: s.provider, Err: err}
			})
		}
		seq := uint32(msg.ID)
		collector.Append(seq, buf.Bytes())
		collector.Seal(seq)
	}
	collector.FinishFetch()

	raws, err := collector.Wait(ctx)
	if err != nil {
		return nil, &TimeoutError{Provider: s.provider}
	}
	finalize()

	return parser.ParseBatch(raws, s.logger), nil
}

func (s *pop3Session) failure(ctx context.Context, err error, wrap func(error) error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Provider: s.provider}
	}
	return wrap(err)
}
