package mailbox

import "fmt"

// ConnectionError wraps a failed dial or authentication against one
// provider. Scoped to that provider's session.
type ConnectionError struct {
	Provider string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Provider, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MailboxError wraps a failure to open the inbox after a successful login.
type MailboxError struct {
	Provider string
	Err      error
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("%s: mailbox open failed: %v", e.Provider, e.Err)
}

func (e *MailboxError) Unwrap() error { return e.Err }

// FetchError wraps a protocol error raised mid-fetch.
type FetchError struct {
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch failed: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TimeoutError reports that a session's deadline fired before the fetch
// completed. Partial results are discarded.
type TimeoutError struct {
	Provider string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: fetch deadline exceeded", e.Provider)
}
