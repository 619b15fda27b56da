package ingest

import (
	"testing"
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/tests/testutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newNormalizer() *Normalizer {
	return NewNormalizer([]string{"mrwalls.com"}, testutil.FixedClock(now))
}

func TestNormalizeDefaults(t *testing.T) {
	got := newNormalizer().Normalize([]source.ThreadSummary{{FromEmail: "a@b.com"}}, nil)

	if len(got) != 1 {
		t.Fatalf("threads = %d, want 1", len(got))
	}
	th := got[0]
	if th.ID == "" {
		t.Error("missing id not generated")
	}
	if th.Subject != NoSubject {
		t.Errorf("subject = %q, want placeholder", th.Subject)
	}
	if !th.LastInboundAt.Equal(now) {
		t.Errorf("lastInboundAt = %v, want now", th.LastInboundAt)
	}
	if th.FromName != "a@b.com" {
		t.Errorf("fromName = %q, want the address", th.FromName)
	}
	if !th.AwaitingReply || th.FollowUpAt != nil {
		t.Errorf("new thread awaiting=%v followUp=%v", th.AwaitingReply, th.FollowUpAt)
	}
	if th.Bucket != model.BucketUnassigned || th.Priority != model.PriorityNormal {
		t.Errorf("bucket=%q priority=%q", th.Bucket, th.Priority)
	}
}

func TestNormalizeGeneratedIDIsStable(t *testing.T) {
	n := newNormalizer()
	s := source.ThreadSummary{FromEmail: "a@b.com", Subject: "Hello"}

	first := n.Normalize([]source.ThreadSummary{s}, nil)[0].ID
	second := n.Normalize([]source.ThreadSummary{s}, nil)[0].ID
	other := n.Normalize([]source.ThreadSummary{{FromEmail: "a@b.com", Subject: "Other"}}, nil)[0].ID

	if first != second {
		t.Fatalf("generated id not stable: %s vs %s", first, second)
	}
	if first == other {
		t.Fatal("different threads got the same id")
	}
}

func TestNormalizeInternalDomainAndFlag(t *testing.T) {
	got := newNormalizer().Normalize([]source.ThreadSummary{
		{ID: "1", FromEmail: "ops@MRWALLS.com", LastInboundAt: now},
		{ID: "2", FromEmail: "vip@client.com", LastInboundAt: now, Flagged: true},
	}, nil)

	if got[0].Bucket != model.BucketInternal {
		t.Errorf("internal sender bucket = %q", got[0].Bucket)
	}
	if got[1].Bucket != model.BucketUnassigned || got[1].Priority != model.PriorityHigh {
		t.Errorf("flagged thread = %q/%q", got[1].Bucket, got[1].Priority)
	}
}

func TestNormalizeCarriesOverManualTriage(t *testing.T) {
	follow := now.Add(24 * time.Hour)
	prior := []model.Thread{{
		ID:                  "t1",
		Bucket:              model.BucketSales,
		Priority:            model.PriorityLow,
		Pinned:              true,
		FollowUpAt:          &follow,
		AnsweredQuestionIDs: []string{"m1"},
		SuggestedDraft:      "Sounds good.",
		LastInboundAt:       now.Add(-48 * time.Hour),
		AwaitingReply:       false,
	}}

	got := newNormalizer().Normalize([]source.ThreadSummary{{
		ID:            "t1",
		FromEmail:     "x@y.com",
		LastInboundAt: now.Add(-48 * time.Hour),
		Flagged:       true,
	}}, prior)

	th := got[0]
	if th.Bucket != model.BucketSales || th.Priority != model.PriorityLow || !th.Pinned {
		t.Errorf("manual triage lost: %+v", th)
	}
	if th.FollowUpAt == nil || !th.FollowUpAt.Equal(follow) {
		t.Errorf("follow-up lost: %v", th.FollowUpAt)
	}
	if !th.IsAnswered("m1") || th.SuggestedDraft != "Sounds good." {
		t.Errorf("answered/draft lost: %+v", th)
	}
	if th.AwaitingReply {
		t.Error("no new inbound message: awaiting should stay false")
	}
}

func TestNormalizeNewInboundReopensThread(t *testing.T) {
	prior := []model.Thread{{
		ID:            "t1",
		Bucket:        model.BucketActiveProjects,
		Priority:      model.PriorityNormal,
		LastInboundAt: now.Add(-48 * time.Hour),
		AwaitingReply: false,
	}}

	got := newNormalizer().Normalize([]source.ThreadSummary{{
		ID:            "t1",
		FromEmail:     "x@y.com",
		LastInboundAt: now.Add(-time.Hour),
	}}, prior)

	if !got[0].AwaitingReply {
		t.Fatal("a newer inbound message must flip awaitingReply back to true")
	}
}

func TestNormalizeMessagesAndSnippet(t *testing.T) {
	got := newNormalizer().Normalize([]source.ThreadSummary{{
		ID:            "t1",
		FromEmail:     "x@y.com",
		LastInboundAt: now,
		Messages: []source.MessageSummary{
			{SenderEmail: "x@y.com", Body: "First   question?"},
			{ID: "out", SenderEmail: "me@mrwalls.com", Body: "Reply", Outbound: true},
		},
	}}, nil)

	th := got[0]
	if th.MessageCount != 2 {
		t.Errorf("messageCount = %d, want 2", th.MessageCount)
	}
	if th.Messages[0].ID != "t1-1" || th.Messages[0].Sender != "x@y.com" || !th.Messages[0].Timestamp.Equal(now) {
		t.Errorf("first message defaults = %+v", th.Messages[0])
	}
	if th.Snippet != "First question?" {
		t.Errorf("snippet = %q", th.Snippet)
	}
}

func TestNormalizeDropsDuplicateIDs(t *testing.T) {
	got := newNormalizer().Normalize([]source.ThreadSummary{
		{ID: "dup", Subject: "first"},
		{ID: "dup", Subject: "second"},
	}, nil)

	if len(got) != 1 || got[0].Subject != "first" {
		t.Fatalf("threads = %+v, want only the first", got)
	}
}
