package gate

import (
	"context"
	"testing"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

func scored(pairs ...any) domain.CandidateSet {
	set := make(domain.CandidateSet, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		set = append(set, domain.Candidate{
			ID:     pairs[i].(string),
			Title:  "title " + pairs[i].(string),
			Rerank: pairs[i+1].(float64),
		})
	}
	return set
}

func TestThreshold_KeepsAboveMinimum(t *testing.T) {
	g := NewThreshold(0.5, 10)

	d, kept, err := g.Decide(context.Background(), domain.NewQuery("q"),
		scored("a", 0.9, "b", 0.6, "c", 0.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !d.Accepted() || d.CandidateID != "a" {
		t.Errorf("decision = %+v", d)
	}
	if d.Kind != domain.KindThreshold {
		t.Errorf("kind = %q", d.Kind)
	}
	if got := kept.IDs(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("kept = %v", got)
	}
}

func TestThreshold_BoundaryScoreIsKept(t *testing.T) {
	g := NewThreshold(0.5, 10)

	_, kept, err := g.Decide(context.Background(), domain.NewQuery("q"), scored("a", 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("score equal to minimum must be kept, got %v", kept.IDs())
	}
}

func TestThreshold_AllBelowRejects(t *testing.T) {
	g := NewThreshold(0.5, 10)

	d, kept, err := g.Decide(context.Background(), domain.NewQuery("q"),
		scored("a", 0.4, "b", 0.1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Accepted() {
		t.Fatal("expected rejection")
	}
	if len(kept) != 0 {
		t.Errorf("kept = %v", kept.IDs())
	}
	if d.Cacheable() {
		t.Error("rejection must not be cacheable")
	}
}

func TestThreshold_TopKBounds(t *testing.T) {
	g := NewThreshold(0.1, 2)

	_, kept, err := g.Decide(context.Background(), domain.NewQuery("q"),
		scored("a", 0.9, "b", 0.8, "c", 0.7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("expected 2 kept, got %v", kept.IDs())
	}
}

func TestThreshold_EmptySetRejects(t *testing.T) {
	g := NewThreshold(0.5, 10)

	d, _, err := g.Decide(context.Background(), domain.NewQuery("q"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Accepted() {
		t.Fatal("expected rejection for empty set")
	}
}
