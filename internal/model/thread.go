package model

import (
	"slices"
	"strings"
	"time"
)

// Message is one inbound or outbound email inside a thread. Messages are
// immutable once ingested.
type Message struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	SenderEmail string    `json:"sender_email"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
}

// Thread is one email conversation and its triage state.
type Thread struct {
	// ID is the provider's thread identifier, stable across syncs.
	ID string `json:"id"`

	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`

	Subject        string   `json:"subject"`
	Snippet        string   `json:"snippet"`
	Project        string   `json:"project,omitempty"`
	SuggestedDraft string   `json:"suggested_draft,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	Unread         bool     `json:"unread"`
	HasAttachments bool     `json:"has_attachments"`
	MessageCount   int      `json:"message_count"`

	Bucket   Bucket   `json:"bucket"`
	Priority Priority `json:"priority"`
	Pinned   bool     `json:"pinned"`

	// LastInboundAt is when the most recent message was received.
	LastInboundAt time.Time `json:"last_inbound_at"`

	// LastOutboundAt is when the operator last sent a message, if ever.
	LastOutboundAt *time.Time `json:"last_outbound_at"`

	AwaitingReply bool `json:"awaiting_reply"`

	// DaysUnresponded is derived by reconciliation; never set it directly.
	DaysUnresponded int `json:"days_unresponded"`

	// FollowUpAt marks a scheduled nudge.
	FollowUpAt *time.Time `json:"follow_up_at"`

	// Messages are in chronological (insertion) order.
	Messages []Message `json:"messages"`

	// AnsweredQuestionIDs holds message IDs the operator marked resolved.
	AnsweredQuestionIDs []string `json:"answered_question_ids"`
}

// IsAnswered reports whether the operator marked messageID as resolved.
func (t Thread) IsAnswered(messageID string) bool {
	return slices.Contains(t.AnsweredQuestionIDs, messageID)
}

// FollowUpPassed reports whether the follow-up date is strictly before now.
func (t Thread) FollowUpPassed(now time.Time) bool {
	return t.FollowUpAt != nil && t.FollowUpAt.Before(now)
}

// SenderDomain returns the lowercased domain part of FromEmail.
func (t Thread) SenderDomain() string {
	_, domain, ok := strings.Cut(t.FromEmail, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Thread) Clone() Thread {
	c := t
	c.Labels = slices.Clone(t.Labels)
	c.Messages = slices.Clone(t.Messages)
	c.AnsweredQuestionIDs = slices.Clone(t.AnsweredQuestionIDs)
	if t.LastOutboundAt != nil {
		v := *t.LastOutboundAt
		c.LastOutboundAt = &v
	}
	if t.FollowUpAt != nil {
		v := *t.FollowUpAt
		c.FollowUpAt = &v
	}
	return c
}

// RoutingRule files every unassigned thread from SenderEmail into
// TargetBucket.
type RoutingRule struct {
	SenderEmail  string    `json:"sender_email" db:"sender_email"`
	TargetBucket Bucket    `json:"target_bucket" db:"target_bucket"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
