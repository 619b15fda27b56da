package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates that authentication has failed or expired for a
// provider. Syncs that fail with it need the operator to re-authenticate
// rather than retry.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Provider, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// MessageSummary is one message of a fetched thread, already reduced to
// plain text.
type MessageSummary struct {
	ID          string
	Sender      string
	SenderEmail string
	Body        string
	Timestamp   time.Time

	// Outbound is true for messages the operator sent.
	Outbound bool
}

// ThreadSummary is the normalized shape every provider returns. Fields a
// provider cannot fill are left zero; ingestion supplies defaults.
type ThreadSummary struct {
	ID        string
	Subject   string
	FromName  string
	FromEmail string
	Snippet   string

	// LastInboundAt is the newest message not sent by the operator.
	LastInboundAt time.Time

	// LastOutboundAt is the newest message the operator sent, if any.
	LastOutboundAt *time.Time

	MessageCount   int
	Labels         []string
	Unread         bool
	HasAttachments bool

	// Flagged marks threads the provider considers important (Gmail
	// IMPORTANT or STARRED, IMAP \Flagged).
	Flagged bool

	Messages []MessageSummary
}

// Provider fetches the operator's recent threads from a mail service.
type Provider interface {
	// Name identifies the provider in logs and sync history.
	Name() string

	// FetchThreads returns up to limit of the most recently active
	// threads. It either returns the full list or an error; callers
	// never see a partial result.
	FetchThreads(ctx context.Context, limit int) ([]ThreadSummary, error)
}

// Validator is implemented by providers that can check their credentials
// without fetching anything.
type Validator interface {
	// ValidateConnection verifies credentials and connectivity.
	// Returns a human-readable status message on success.
	ValidateConnection(ctx context.Context) (string, error)
}
