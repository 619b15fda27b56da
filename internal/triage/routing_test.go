package triage

import (
	"testing"

	"github.com/nhle/desk/internal/model"
)

func TestRuleSetUpsertReplacesSameSender(t *testing.T) {
	rs := RuleSet{}.
		Upsert("a@b.com", model.BucketSales, testNow).
		Upsert("c@d.com", model.BucketInternal, testNow).
		Upsert("a@b.com", model.BucketActiveProjects, testNow)

	if rs.Len() != 2 {
		t.Fatalf("len = %d, want 2", rs.Len())
	}
	got, ok := rs.Apply("a@b.com")
	if !ok || got != model.BucketActiveProjects {
		t.Fatalf("Apply = %q, %v; want Active Projects", got, ok)
	}

	rules := rs.Rules()
	if rules[len(rules)-1].SenderEmail != "a@b.com" {
		t.Fatalf("replaced rule should move to the end, got order %+v", rules)
	}
}

func TestRuleSetUpsertIsImmutable(t *testing.T) {
	base := RuleSet{}.Upsert("a@b.com", model.BucketSales, testNow)
	_ = base.Upsert("a@b.com", model.BucketInternal, testNow)

	got, _ := base.Apply("a@b.com")
	if got != model.BucketSales {
		t.Fatalf("original rule set changed to %q", got)
	}
}

func TestRuleSetCaseInsensitiveMatch(t *testing.T) {
	rs := RuleSet{}.Upsert("Marcus@Design.com ", model.BucketActiveProjects, testNow)

	for _, sender := range []string{"marcus@design.com", "MARCUS@DESIGN.COM", " Marcus@design.com"} {
		if got, ok := rs.Apply(sender); !ok || got != model.BucketActiveProjects {
			t.Errorf("Apply(%q) = %q, %v; want match", sender, got, ok)
		}
	}
}

func TestRuleSetMiss(t *testing.T) {
	rs := NewRuleSet(model.RoutingRule{SenderEmail: "a@b.com", TargetBucket: model.BucketSales})

	if _, ok := rs.Apply("someone@else.com"); ok {
		t.Fatal("expected no rule for unknown sender")
	}
	if _, ok := rs.Apply(""); ok {
		t.Fatal("expected no rule for empty sender")
	}
}

func TestRuleSetIgnoresEmptySender(t *testing.T) {
	rs := RuleSet{}.Upsert("  ", model.BucketSales, testNow)
	if rs.Len() != 0 {
		t.Fatalf("len = %d, want 0", rs.Len())
	}
}
