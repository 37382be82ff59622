package gate

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

type fakeChat struct {
	content string
	err     error

	lastReq openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func candidates(ids ...string) domain.CandidateSet {
	set := make(domain.CandidateSet, len(ids))
	for i, id := range ids {
		set[i] = domain.Candidate{ID: id, Title: "title " + id}
	}
	return set
}

func newTestJudge(chat chatClient) *Judge {
	return NewJudge(chat, "gpt-4o-mini", zap.NewNop())
}

func TestJudge_AcceptsMatch(t *testing.T) {
	chat := &fakeChat{content: `{"match": true, "candidate_id": 2, "reason": "same model"}`}

	j := newTestJudge(chat)
	d, kept, err := j.Decide(context.Background(), domain.NewQuery("sony xm5"), candidates("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !d.Accepted() {
		t.Fatalf("expected acceptance, got %+v", d)
	}
	if d.CandidateID != "b" {
		t.Errorf("candidate = %q, want b", d.CandidateID)
	}
	if d.Kind != domain.KindJudge {
		t.Errorf("kind = %q", d.Kind)
	}
	if !d.Cacheable() {
		t.Error("genuine acceptance must be cacheable")
	}
	if len(kept) != 3 {
		t.Errorf("judge must keep the full set, got %d", len(kept))
	}
}

func TestJudge_RejectsNoMatch(t *testing.T) {
	chat := &fakeChat{content: `{"match": false, "candidate_id": 0, "reason": "different brand"}`}

	j := newTestJudge(chat)
	d, _, err := j.Decide(context.Background(), domain.NewQuery("sony xm5"), candidates("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Accepted() {
		t.Fatal("expected rejection")
	}
	if d.Rationale != "different brand" {
		t.Errorf("rationale = %q", d.Rationale)
	}
	if d.Cacheable() {
		t.Error("rejection must not be cacheable")
	}
}

func TestJudge_MalformedResponse(t *testing.T) {
	chat := &fakeChat{content: `the best match is probably candidate 1`}

	j := newTestJudge(chat)
	d, _, err := j.Decide(context.Background(), domain.NewQuery("sony xm5"), candidates("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Outcome != domain.Rejected || d.Kind != domain.KindJudgeMalformed {
		t.Errorf("decision = %+v", d)
	}
	if d.Cacheable() {
		t.Error("malformed verdict must not be cacheable")
	}
}

func TestJudge_OutOfRangeCandidate(t *testing.T) {
	chat := &fakeChat{content: `{"match": true, "candidate_id": 99, "reason": "looks right"}`}

	j := newTestJudge(chat)
	d, _, err := j.Decide(context.Background(), domain.NewQuery("sony xm5"), candidates("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Outcome != domain.Rejected || d.Kind != domain.KindJudgeInvalid {
		t.Errorf("decision = %+v", d)
	}
}

func TestJudge_APIErrorIsDownstream(t *testing.T) {
	chat := &fakeChat{err: errors.New("rate limited")}

	j := newTestJudge(chat)
	_, _, err := j.Decide(context.Background(), domain.NewQuery("sony xm5"), candidates("a"))
	if !errors.Is(err, domain.ErrDownstreamService) {
		t.Fatalf("expected ErrDownstreamService, got %v", err)
	}
}

func TestJudge_RequestShape(t *testing.T) {
	chat := &fakeChat{content: `{"match": false, "candidate_id": 0, "reason": "no"}`}

	j := newTestJudge(chat)
	_, _, _ = j.Decide(context.Background(), domain.NewQuery("  Sony  XM5 "), candidates("a", "b"))

	req := chat.lastReq
	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", req.Model)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("expected JSON object response format")
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}

	// The judge sees the raw query text, not the normalized cache key.
	user := req.Messages[1].Content
	for _, want := range []string{`"  Sony  XM5 "`, "1. title a", "2. title b"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestJudge_RuleSetPinned(t *testing.T) {
	chat := &fakeChat{content: `{"match": false, "candidate_id": 0, "reason": "no"}`}

	j := newTestJudge(chat)
	_, _, _ = j.Decide(context.Background(), domain.NewQuery("sony xm5"), candidates("a"))

	system := chat.lastReq.Messages[0].Content
	for _, rule := range []string{
		"brand must match",
		"Refurbished",
		"accessory is not the product",
		"generation or version must match",
	} {
		if !strings.Contains(system, rule) {
			t.Errorf("system prompt missing rule %q", rule)
		}
	}
}

func TestParseVerdict_Sentinels(t *testing.T) {
	_, err := parseVerdict(openai.ChatCompletionResponse{}, 3)
	if !errors.Is(err, domain.ErrDecisionMalformed) {
		t.Errorf("empty completion: %v", err)
	}

	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: `{"match": true, "candidate_id": 0}`}},
		},
	}
	_, err = parseVerdict(resp, 3)
	if !errors.Is(err, domain.ErrDecisionInvalid) {
		t.Errorf("zero candidate on match: %v", err)
	}
}
