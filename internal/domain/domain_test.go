package domain

import "testing"

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Sony  XM5 ", "sony xm5"},
		{"sony xm5", "sony xm5"},
		{"Sony\tWH-1000XM5\n Black", "sony wh-1000xm5 black"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeQuery(c.in); got != c.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeQuery_Stability(t *testing.T) {
	a := NewQuery("  Sony  XM5 ")
	b := NewQuery("sony xm5")
	if a.Normalized() != b.Normalized() {
		t.Errorf("normalized forms differ: %q vs %q", a.Normalized(), b.Normalized())
	}
	if a.Raw() != "  Sony  XM5 " {
		t.Errorf("raw text mutated: %q", a.Raw())
	}
}

func TestSparseVector_Validate(t *testing.T) {
	ok := SparseVector{Indices: []uint32{1, 5, 900}, Weights: []float32{0.1, 0.5, 0.2}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid vector rejected: %v", err)
	}

	cases := map[string]SparseVector{
		"length mismatch":  {Indices: []uint32{1, 2}, Weights: []float32{0.1}},
		"descending":       {Indices: []uint32{5, 1}, Weights: []float32{0.1, 0.2}},
		"duplicate":        {Indices: []uint32{5, 5}, Weights: []float32{0.1, 0.2}},
		"negative weight":  {Indices: []uint32{5}, Weights: []float32{-0.1}},
		"out of space":     {Indices: []uint32{SparseFeatureSpace}, Weights: []float32{0.1}},
	}
	for name, v := range cases {
		if err := v.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestNormalizeDense(t *testing.T) {
	v := []float32{3, 4}
	NormalizeDense(v)
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("expected unit vector [0.6 0.8], got %v", v)
	}

	zero := []float32{0, 0}
	NormalizeDense(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector must stay zero, got %v", zero)
	}
}

func TestDecision_Cacheable(t *testing.T) {
	cases := []struct {
		d    Decision
		want bool
	}{
		{Decision{Outcome: Accepted, Kind: KindJudge}, true},
		{Decision{Outcome: Accepted, Kind: KindThreshold}, true},
		{Decision{Outcome: Rejected, Kind: KindJudge}, false},
		{Decision{Outcome: Accepted, Kind: KindJudgeInvalid}, false},
		{Decision{Outcome: Accepted, Kind: KindJudgeMalformed}, false},
	}
	for _, c := range cases {
		if got := c.d.Cacheable(); got != c.want {
			t.Errorf("Cacheable(%v/%v) = %v, want %v", c.d.Outcome, c.d.Kind, got, c.want)
		}
	}
}

func TestCandidateSet_Helpers(t *testing.T) {
	set := CandidateSet{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if !set.Contains("b") || set.Contains("z") {
		t.Error("Contains misbehaved")
	}
	if got := set.Truncate(2); len(got) != 2 || got[1].ID != "b" {
		t.Errorf("Truncate(2) = %v", got.IDs())
	}
	if got := set.Truncate(10); len(got) != 3 {
		t.Errorf("Truncate(10) must keep all, got %d", len(got))
	}
}
