// Package demo is an offline provider that serves a fixed set of sample
// threads relative to the current time. It backs the "demo" provider type
// and the sync tests.
package demo

import (
	"context"
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
)

// Provider serves sample threads. Every fetch returns the same threads
// with timestamps computed from the clock.
type Provider struct {
	operator model.Operator
	now      func() time.Time
}

// New returns a demo provider for op. A nil clock uses time.Now.
func New(op model.Operator, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{operator: op, now: now}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "demo"
}

// FetchThreads returns up to limit sample threads.
func (p *Provider) FetchThreads(ctx context.Context, limit int) ([]source.ThreadSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	threads := p.threads()
	if limit > 0 && len(threads) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

func (p *Provider) threads() []source.ThreadSummary {
	now := p.now()
	hours := func(h float64) time.Time { return now.Add(-time.Duration(h * float64(time.Hour))) }
	days := func(d float64) time.Time { return hours(d * 24) }
	ptr := func(t time.Time) *time.Time { return &t }

	me := p.operator.Name
	if me == "" {
		me = "Me"
	}
	myEmail := p.operator.Email
	name := firstName(me)

	return []source.ThreadSummary{
		{
			ID:             "demo-westside-approval",
			Subject:        "Material approval for Westside Plaza",
			FromName:       "Marcus Aurelius",
			FromEmail:      "m.aurelius@design.com",
			Snippet:        name + ", we need your final sign-off on the resin samples by EOD.",
			LastInboundAt:  hours(4),
			LastOutboundAt: ptr(days(2)),
			MessageCount:   3,
			Labels:         []string{"Design", "Approval"},
			Unread:         true,
			Flagged:        true,
			Messages: []source.MessageSummary{
				{ID: "dw-1", Sender: "Marcus Aurelius", SenderEmail: "m.aurelius@design.com", Timestamp: days(3),
					Body: "Hi " + name + ", we're finalizing the material palette for Westside this week."},
				{ID: "dw-2", Sender: me, SenderEmail: myEmail, Timestamp: days(2), Outbound: true,
					Body: "Thanks Marcus. I'll look at the resin samples by EOD."},
				{ID: "dw-3", Sender: "Marcus Aurelius", SenderEmail: "m.aurelius@design.com", Timestamp: hours(4),
					Body: name + ", we need your final sign-off on the textured resin samples by EOD. Is LM-04 the right choice?"},
			},
		},
		{
			ID:             "demo-gate-code",
			Subject:        "Gate code not working",
			FromName:       "Sarah Higgins",
			FromEmail:      "s.higgins@residential.com",
			Snippet:        "The crew is in the driveway and the code isn't working.",
			LastInboundAt:  days(5),
			LastOutboundAt: ptr(days(6)),
			MessageCount:   1,
			Labels:         []string{"Access"},
			Flagged:        true,
			Messages: []source.MessageSummary{
				{ID: "dg-1", Sender: "Sarah Higgins", SenderEmail: "s.higgins@residential.com", Timestamp: days(5),
					Body: "Hey " + name + ", the crew is sitting in the driveway and the code isn't working. Do you have the new entry code?"},
			},
		},
		{
			ID:             "demo-marble-order",
			Subject:        "Liquid marble order #882 shipping update",
			FromName:       "Devon Port",
			FromEmail:      "d.port@supply.io",
			Snippet:        "Cleared customs, expected Wednesday.",
			LastInboundAt:  days(2),
			LastOutboundAt: ptr(days(2.1)),
			MessageCount:   1,
			Labels:         []string{"Logistics"},
			Messages: []source.MessageSummary{
				{ID: "dm-1", Sender: "Devon Port", SenderEmail: "d.port@supply.io", Timestamp: days(2),
					Body: name + ", the marble cleared customs. What do you think about the lead time for the next batch?"},
			},
		},
		{
			ID:            "demo-lobby-quote",
			Subject:       "Pricing for the new lobby",
			FromName:      "Jo Arch",
			FromEmail:     "j.arch@studio.com",
			Snippet:       "Can you send over a quote for the new lobby project?",
			LastInboundAt: hours(2),
			MessageCount:  1,
			Labels:        []string{"Referral"},
			Unread:        true,
			Messages: []source.MessageSummary{
				{ID: "dl-1", Sender: "Jo Arch", SenderEmail: "j.arch@studio.com", Timestamp: hours(2),
					Body: "Hi " + name + ", Marcus mentioned your work on the Plaza. Can you send over a quote for the new lobby? We're waiting on you to finalize the bid."},
			},
		},
		{
			ID:             "demo-payroll",
			Subject:        "Payroll closes Friday",
			FromName:       "Accounting",
			FromEmail:      "accounting@ops-team.com",
			Snippet:        "Reminder: timesheets are due Thursday.",
			LastInboundAt:  days(1),
			LastOutboundAt: ptr(hours(20)),
			MessageCount:   2,
			Messages: []source.MessageSummary{
				{ID: "dp-1", Sender: "Accounting", SenderEmail: "accounting@ops-team.com", Timestamp: days(1),
					Body: "Reminder: timesheets are due Thursday for the Friday payroll run."},
				{ID: "dp-2", Sender: me, SenderEmail: myEmail, Timestamp: hours(20), Outbound: true,
					Body: "Submitted mine."},
			},
		},
	}
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}
