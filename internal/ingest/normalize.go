// Package ingest maps provider thread summaries onto triage threads,
// filling safe defaults and carrying the operator's manual triage over
// from the previous snapshot.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/textutil"
)

// NoSubject replaces an empty subject.
const NoSubject = "(no subject)"

// UnknownSender is the display name used when a thread has neither a
// sender name nor an address.
const UnknownSender = "(unknown sender)"

// snippetLength bounds snippets derived from a message body.
const snippetLength = 140

// idNamespace seeds the ids generated for threads that arrive without one.
var idNamespace = uuid.MustParse("b7e0c3c4-2f5e-4f0e-8a0e-6c1f0d8e2a31")

// Normalizer turns ThreadSummaries into Threads.
type Normalizer struct {
	internalDomains map[string]bool
	now             func() time.Time
}

// NewNormalizer builds a Normalizer. Threads from any of internalDomains
// start in the Internal bucket. A nil clock uses time.Now.
func NewNormalizer(internalDomains []string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	domains := make(map[string]bool, len(internalDomains))
	for _, d := range internalDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, "@")))
		if d != "" {
			domains[d] = true
		}
	}
	return &Normalizer{internalDomains: domains, now: now}
}

// Normalize maps summaries onto threads. Threads already present in prior
// (matched by id) keep their bucket, priority, pin, follow-up, answered
// questions and draft; a newer inbound message makes them await a reply
// again. Duplicate ids keep the first summary. Missing fields are
// defaulted, never rejected.
func (n *Normalizer) Normalize(summaries []source.ThreadSummary, prior []model.Thread) []model.Thread {
	now := n.now()

	known := make(map[string]model.Thread, len(prior))
	for _, t := range prior {
		known[t.ID] = t
	}

	seen := make(map[string]bool, len(summaries))
	out := make([]model.Thread, 0, len(summaries))
	for _, s := range summaries {
		t := n.fromSummary(s, now)
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		if p, ok := known[t.ID]; ok {
			t = carryOver(t, p)
		} else {
			t.Bucket = n.initialBucket(t)
			t.Priority = model.PriorityNormal
			if s.Flagged {
				t.Priority = model.PriorityHigh
			}
		}
		out = append(out, t)
	}
	return out
}

// fromSummary builds a new thread from s with defaults applied.
func (n *Normalizer) fromSummary(s source.ThreadSummary, now time.Time) model.Thread {
	t := model.Thread{
		ID:             strings.TrimSpace(s.ID),
		FromName:       strings.TrimSpace(s.FromName),
		FromEmail:      strings.TrimSpace(s.FromEmail),
		Subject:        strings.TrimSpace(s.Subject),
		Snippet:        strings.TrimSpace(s.Snippet),
		Labels:         append([]string(nil), s.Labels...),
		Unread:         s.Unread,
		HasAttachments: s.HasAttachments,
		MessageCount:   s.MessageCount,
		LastInboundAt:  s.LastInboundAt,
		AwaitingReply:  true,
	}
	if s.LastOutboundAt != nil {
		at := *s.LastOutboundAt
		t.LastOutboundAt = &at
	}

	if t.Subject == "" {
		t.Subject = NoSubject
	}
	if t.LastInboundAt.IsZero() {
		t.LastInboundAt = now
	}
	if t.FromName == "" {
		t.FromName = t.FromEmail
	}
	if t.FromName == "" {
		t.FromName = UnknownSender
	}
	if t.ID == "" {
		key := strings.ToLower(t.FromEmail) + "\x00" + t.Subject
		t.ID = uuid.NewSHA1(idNamespace, []byte(key)).String()
	}

	for i, m := range s.Messages {
		msg := model.Message{
			ID:          m.ID,
			Sender:      m.Sender,
			SenderEmail: m.SenderEmail,
			Body:        m.Body,
			Timestamp:   m.Timestamp,
		}
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("%s-%d", t.ID, i+1)
		}
		if msg.Sender == "" {
			msg.Sender = msg.SenderEmail
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = t.LastInboundAt
		}
		t.Messages = append(t.Messages, msg)
	}

	if t.MessageCount < len(t.Messages) {
		t.MessageCount = len(t.Messages)
	}
	if t.Snippet == "" {
		t.Snippet = lastInboundSnippet(s.Messages)
	}

	return t
}

// initialBucket files threads from internal domains as Internal and
// everything else as Unassigned.
func (n *Normalizer) initialBucket(t model.Thread) model.Bucket {
	if n.internalDomains[t.SenderDomain()] {
		return model.BucketInternal
	}
	return model.BucketUnassigned
}

// carryOver keeps the operator-owned fields of prior on the fresh thread.
func carryOver(fresh, prior model.Thread) model.Thread {
	fresh.Bucket = prior.Bucket
	fresh.Priority = prior.Priority
	fresh.Pinned = prior.Pinned
	fresh.Project = prior.Project
	fresh.Reason = prior.Reason
	fresh.SuggestedDraft = prior.SuggestedDraft
	fresh.AnsweredQuestionIDs = append([]string(nil), prior.AnsweredQuestionIDs...)
	if prior.FollowUpAt != nil {
		at := *prior.FollowUpAt
		fresh.FollowUpAt = &at
	}

	fresh.AwaitingReply = prior.AwaitingReply
	if fresh.LastInboundAt.After(prior.LastInboundAt) {
		fresh.AwaitingReply = true
	}
	return fresh
}

func lastInboundSnippet(messages []source.MessageSummary) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if !messages[i].Outbound && strings.TrimSpace(messages[i].Body) != "" {
			return textutil.Snippet(messages[i].Body, snippetLength)
		}
	}
	return ""
}
