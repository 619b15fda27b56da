package demo

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/desk/internal/model"
)

var now = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func TestFetchThreads(t *testing.T) {
	op := model.Operator{Name: "Sawyer Reed", Email: "sawyer@desk.dev"}
	p := New(op, func() time.Time { return now })

	threads, err := p.FetchThreads(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchThreads: %v", err)
	}
	if len(threads) == 0 {
		t.Fatal("no demo threads")
	}

	seen := map[string]bool{}
	for _, th := range threads {
		if th.ID == "" || seen[th.ID] {
			t.Errorf("missing or duplicate id %q", th.ID)
		}
		seen[th.ID] = true

		if th.LastInboundAt.After(now) {
			t.Errorf("%s: last inbound %v is in the future", th.ID, th.LastInboundAt)
		}
		for _, m := range th.Messages {
			if m.Outbound && m.SenderEmail != op.Email {
				t.Errorf("%s/%s: outbound message from %q", th.ID, m.ID, m.SenderEmail)
			}
		}
	}

	limited, err := p.FetchThreads(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchThreads(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d threads", len(limited))
	}
}

func TestFetchThreadsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(model.Operator{}, nil).FetchThreads(ctx, 0); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
