package testutil

import (
	"testing"
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/store"
)

// NewTestJournal creates an in-memory Journal with all migrations applied.
// It automatically closes the journal when the test completes.
func NewTestJournal(t *testing.T) *store.Journal {
	t.Helper()

	j, err := store.OpenJournal(":memory:")
	if err != nil {
		t.Fatalf("creating test journal: %v", err)
	}

	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("closing test journal: %v", err)
		}
	})

	return j
}

// FixedClock returns a clock that always reads at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Thread builds an awaiting thread from sender email with sensible
// defaults, received days ago relative to now.
func Thread(id, senderEmail string, bucket model.Bucket, now time.Time, days int) model.Thread {
	return model.Thread{
		ID:            id,
		FromName:      senderEmail,
		FromEmail:     senderEmail,
		Subject:       "Subject " + id,
		Bucket:        bucket,
		Priority:      model.PriorityNormal,
		LastInboundAt: now.Add(-time.Duration(days) * 24 * time.Hour),
		AwaitingReply: true,
		MessageCount:  1,
		Messages: []model.Message{{
			ID:          id + "-m1",
			Sender:      senderEmail,
			SenderEmail: senderEmail,
			Body:        "Can you take a look?",
			Timestamp:   now.Add(-time.Duration(days) * 24 * time.Hour),
		}},
	}
}
