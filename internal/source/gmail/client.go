// Package gmail implements source.Provider on top of the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nhle/desk/internal/credential"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/textutil"
)

const (
	user = "me"

	// inboxQuery skips drafts, which have no sender worth triaging.
	inboxQuery = "in:inbox -in:draft"

	providerName = "gmail"
)

// Client fetches threads through the Gmail REST API.
type Client struct {
	srv      *gmail.Service
	operator model.Operator
	logger   *slog.Logger
}

// NewClient builds a Client from the OAuth client secret file and the
// token JSON stored in the keyring under cfg.TokenKey.
func NewClient(
	ctx context.Context,
	cfg model.GmailConfig,
	op model.Operator,
	secrets credential.Getter,
	logger *slog.Logger,
) (*Client, error) {
	oauthConfig, err := loadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	raw, err := secrets(cfg.TokenKey)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, &source.AuthError{
				Provider: providerName,
				Message:  "no OAuth token stored; run `desk auth gmail`",
			}
		}
		return nil, fmt.Errorf("reading gmail token: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, fmt.Errorf("decoding gmail token: %w", err)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return NewClientWithService(srv, op, logger), nil
}

// NewClientWithService wraps an already configured service.
func NewClientWithService(srv *gmail.Service, op model.Operator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		srv:      srv,
		operator: op,
		logger:   logger.With("component", "gmail"),
	}
}

func loadOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file %s: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}
	return cfg, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// ValidateConnection fetches the mailbox profile. Returns the mailbox
// address on success.
func (c *Client) ValidateConnection(ctx context.Context) (string, error) {
	profile, err := c.srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", classify("fetching gmail profile", err)
	}
	return profile.EmailAddress, nil
}

// FetchThreads lists the newest inbox threads and fetches each one in
// full. Any failure aborts the whole fetch.
func (c *Client) FetchThreads(ctx context.Context, limit int) ([]source.ThreadSummary, error) {
	call := c.srv.Users.Threads.List(user).Q(inboxQuery).Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}

	list, err := call.Do()
	if err != nil {
		return nil, classify("listing gmail threads", err)
	}

	summaries := make([]source.ThreadSummary, 0, len(list.Threads))
	for _, t := range list.Threads {
		full, err := c.srv.Users.Threads.Get(user, t.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, classify(fmt.Sprintf("fetching gmail thread %s", t.Id), err)
		}
		s, ok := c.summarize(full)
		if !ok {
			continue
		}
		summaries = append(summaries, s)
	}

	c.logger.Debug("fetched threads", "count", len(summaries))
	return summaries, nil
}

// summarize maps a full Gmail thread onto a ThreadSummary. Threads with no
// inbound message are reported as not ok.
func (c *Client) summarize(t *gmail.Thread) (source.ThreadSummary, bool) {
	s := source.ThreadSummary{
		ID:           t.Id,
		Snippet:      t.Snippet,
		MessageCount: len(t.Messages),
	}

	labels := make(map[string]bool)
	hasInbound := false
	for _, m := range t.Messages {
		headers := headerMap(m.Payload)
		name, addr := parseFrom(headers["from"])
		ts := time.UnixMilli(m.InternalDate).UTC()

		if s.Subject == "" {
			s.Subject = headers["subject"]
		}

		outbound := hasLabel(m.LabelIds, "SENT") || c.operator.Authored(name, addr)
		for _, l := range m.LabelIds {
			labels[l] = true
		}
		if hasLabel(m.LabelIds, "UNREAD") {
			s.Unread = true
		}

		plain, html, attachments := extractBody(m.Payload)
		if attachments {
			s.HasAttachments = true
		}

		s.Messages = append(s.Messages, source.MessageSummary{
			ID:          m.Id,
			Sender:      name,
			SenderEmail: addr,
			Body:        textutil.StripQuoted(textutil.BodyText(plain, html)),
			Timestamp:   ts,
			Outbound:    outbound,
		})

		if outbound {
			if s.LastOutboundAt == nil || ts.After(*s.LastOutboundAt) {
				at := ts
				s.LastOutboundAt = &at
			}
			continue
		}
		if !hasInbound || !ts.Before(s.LastInboundAt) {
			hasInbound = true
			s.LastInboundAt = ts
			s.FromName = name
			s.FromEmail = addr
		}
	}

	for _, l := range []string{"IMPORTANT", "STARRED"} {
		if labels[l] {
			s.Flagged = true
		}
	}
	for l := range labels {
		if userVisibleLabel(l) {
			s.Labels = append(s.Labels, l)
		}
	}
	slices.Sort(s.Labels)

	return s, hasInbound
}

// headerMap returns the message headers keyed by lowercased name. The
// first occurrence of a header wins.
func headerMap(p *gmail.MessagePart) map[string]string {
	out := make(map[string]string)
	if p == nil {
		return out
	}
	for _, h := range p.Headers {
		key := strings.ToLower(h.Name)
		if _, ok := out[key]; !ok {
			out[key] = h.Value
		}
	}
	return out
}

// parseFrom splits a From header into display name and address. An
// unparseable header is returned whole as the address.
func parseFrom(from string) (name, addr string) {
	if from == "" {
		return "", ""
	}
	a, err := mail.ParseAddress(from)
	if err != nil {
		return "", strings.Trim(strings.TrimSpace(from), "<>")
	}
	return a.Name, a.Address
}

// extractBody walks a MIME tree and returns the first text/plain and
// text/html bodies, plus whether any part is an attachment.
func extractBody(p *gmail.MessagePart) (plain, html string, attachments bool) {
	if p == nil {
		return "", "", false
	}
	if p.Filename != "" {
		return "", "", true
	}

	mime := strings.ToLower(p.MimeType)
	if p.Body != nil && p.Body.Data != "" {
		switch {
		case strings.HasPrefix(mime, "text/plain"):
			plain = decodeBody(p.Body.Data)
		case strings.HasPrefix(mime, "text/html"):
			html = decodeBody(p.Body.Data)
		}
	}

	for _, part := range p.Parts {
		pp, ph, pa := extractBody(part)
		if plain == "" {
			plain = pp
		}
		if html == "" {
			html = ph
		}
		attachments = attachments || pa
	}
	return plain, html, attachments
}

// decodeBody decodes Gmail's base64url body data, with or without padding.
func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}

func hasLabel(labels []string, want string) bool {
	return slices.Contains(labels, want)
}

// userVisibleLabel filters out Gmail's system and category labels.
func userVisibleLabel(l string) bool {
	switch l {
	case "INBOX", "SENT", "UNREAD", "IMPORTANT", "STARRED", "DRAFT", "SPAM", "TRASH", "CHAT":
		return false
	}
	return !strings.HasPrefix(l, "CATEGORY_")
}

// classify wraps err, turning credential failures into AuthError.
func classify(what string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 401 || gerr.Code == 403) {
		return &source.AuthError{Provider: providerName, Message: fmt.Sprintf("%s: %s", what, gerr.Message)}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &source.AuthError{Provider: providerName, Message: fmt.Sprintf("%s: token refresh failed", what)}
	}
	return fmt.Errorf("%s: %w", what, err)
}
