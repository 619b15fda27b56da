// Package email implements source.Provider over IMAP. Messages from the
// inbox and the sent mailbox are grouped into threads by normalized
// subject.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/desk/internal/credential"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/textutil"
)

const providerName = "imap"

// messagesPerThread bounds how many messages are fetched per requested
// thread, per mailbox.
const messagesPerThread = 4

// threadNamespace seeds the UUIDs derived from thread keys.
var threadNamespace = uuid.MustParse("4f1c2a52-7d0e-4b8e-9a55-3f1d4c7e9b10")

// Adapter implements source.Provider for IMAP mailboxes.
type Adapter struct {
	imapClient  *IMAPClient
	sentMailbox string
	sinceDays   int
	username    string
	operator    model.Operator
	now         func() time.Time
	logger      *slog.Logger
}

// NewAdapter creates an IMAP provider. The password is read from the
// keyring entry credential.IMAPPasswordKey(cfg.Username).
func NewAdapter(
	cfg model.IMAPConfig,
	op model.Operator,
	secrets credential.Getter,
	logger *slog.Logger,
) (*Adapter, error) {
	if cfg.Host == "" || cfg.Username == "" {
		return nil, fmt.Errorf("imap provider needs host and username")
	}

	password, err := secrets(credential.IMAPPasswordKey(cfg.Username))
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, &source.AuthError{
				Provider: providerName,
				Message:  fmt.Sprintf("no password stored for %s; run `desk auth imap`", cfg.Username),
			}
		}
		return nil, fmt.Errorf("reading imap password: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		imapClient: NewIMAPClient(
			cfg.Host, cfg.Port, cfg.Username, password, cfg.TLS,
		),
		sentMailbox: cfg.SentMailbox,
		sinceDays:   cfg.SinceDays,
		username:    cfg.Username,
		operator:    op,
		now:         time.Now,
		logger:      logger.With("component", "imap"),
	}, nil
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return providerName
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting INBOX. Returns the username on success.
func (a *Adapter) ValidateConnection(
	ctx context.Context,
) (string, error) {
	client, err := a.imapClient.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating email connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting INBOX: %w", err)
	}

	return a.username, nil
}

// FetchThreads reads recent messages from INBOX and the sent mailbox over
// one connection and groups them into at most limit threads, most
// recently active first. A missing sent mailbox is logged and skipped;
// any other failure aborts the fetch.
func (a *Adapter) FetchThreads(
	ctx context.Context, limit int,
) ([]source.ThreadSummary, error) {
	client, err := a.imapClient.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	since := a.now().AddDate(0, 0, -a.sinceDays)
	perMailbox := 0
	if limit > 0 {
		perMailbox = limit * messagesPerThread
	}

	inbox, err := a.imapClient.FetchMailbox(client, "INBOX", since, perMailbox)
	if err != nil {
		return nil, err
	}

	var sent []ParsedMessage
	if a.sentMailbox != "" {
		sent, err = a.imapClient.FetchMailbox(client, a.sentMailbox, since, perMailbox)
		if err != nil {
			a.logger.Warn("skipping sent mailbox", "mailbox", a.sentMailbox, "error", err)
			sent = nil
		}
		for i := range sent {
			sent[i].Outbound = true
		}
	}

	threads := GroupThreads(append(inbox, sent...), a.operator)
	if limit > 0 && len(threads) > limit {
		threads = threads[:limit]
	}

	a.logger.Debug("fetched threads", "inbox", len(inbox), "sent", len(sent), "threads", len(threads))
	return threads, nil
}

var subjectPrefix = regexp.MustCompile(`(?i)^\s*((re|fwd?|aw|sv)\s*(\[\d+\])?\s*:\s*)+`)

// NormalizeSubject strips reply and forward prefixes and folds case, so
// "Re: RE: Fwd: Lobby" and "lobby" share a thread.
func NormalizeSubject(subject string) string {
	s := subjectPrefix.ReplaceAllString(subject, "")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// GroupThreads groups messages into threads by normalized subject. A
// thread contains at least one inbound message; sent messages with no
// matching inbound thread are dropped. Messages inside a thread are
// ordered by date, and threads by their latest message, newest first.
func GroupThreads(messages []ParsedMessage, op model.Operator) []source.ThreadSummary {
	groups := make(map[string][]ParsedMessage)
	for _, m := range messages {
		key := NormalizeSubject(m.Envelope.Subject)
		groups[key] = append(groups[key], m)
	}

	type dated struct {
		summary source.ThreadSummary
		latest  time.Time
	}
	var out []dated

	for key, msgs := range groups {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].Envelope.Date.Before(msgs[j].Envelope.Date)
		})

		s := source.ThreadSummary{
			ID:           uuid.NewSHA1(threadNamespace, []byte(key)).String(),
			MessageCount: len(msgs),
		}
		var latest time.Time
		hasInbound := false

		for _, m := range msgs {
			env := m.Envelope
			outbound := m.Outbound || op.Authored(env.FromName, env.FromAddr)
			body := textutil.StripQuoted(textutil.BodyText(m.TextBody, m.HTMLBody))

			s.Messages = append(s.Messages, source.MessageSummary{
				ID:          messageID(env),
				Sender:      env.FromName,
				SenderEmail: env.FromAddr,
				Body:        body,
				Timestamp:   env.Date,
				Outbound:    outbound,
			})
			if len(m.Attachments) > 0 {
				s.HasAttachments = true
			}
			if env.Date.After(latest) {
				latest = env.Date
			}

			if outbound {
				if s.LastOutboundAt == nil || env.Date.After(*s.LastOutboundAt) {
					at := env.Date
					s.LastOutboundAt = &at
				}
				continue
			}

			hasInbound = true
			if s.Subject == "" {
				s.Subject = env.Subject
			}
			if !env.Date.Before(s.LastInboundAt) {
				s.LastInboundAt = env.Date
				s.FromName = env.FromName
				s.FromEmail = env.FromAddr
				s.Snippet = textutil.Snippet(body, 140)
			}
			if !env.HasFlag(`\Seen`) {
				s.Unread = true
			}
			if env.HasFlag(`\Flagged`) {
				s.Flagged = true
			}
		}

		if !hasInbound {
			continue
		}
		out = append(out, dated{summary: s, latest: latest})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].latest.Equal(out[j].latest) {
			return out[i].latest.After(out[j].latest)
		}
		return out[i].summary.ID < out[j].summary.ID
	})

	threads := make([]source.ThreadSummary, len(out))
	for i, d := range out {
		threads[i] = d.summary
	}
	return threads
}

// messageID prefers the RFC 5322 Message-ID and falls back to the UID.
func messageID(env Envelope) string {
	if env.MessageID != "" {
		return env.MessageID
	}
	return fmt.Sprintf("uid-%d", env.UID)
}
