package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// chatClient is the consumer interface over the OpenAI-compatible chat API (ISP).
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Judge asks an LLM to verify that one retrieved candidate is the product
// the query names. A broken judge response is a rejection, never an
// acceptance: the trace keeps the distinction via the decision kind.
type Judge struct {
	client chatClient
	model  string
	logger *zap.Logger
}

// NewJudge creates an LLM judge gate.
func NewJudge(client chatClient, model string, logger *zap.Logger) *Judge {
	return &Judge{client: client, model: model, logger: logger}
}

// verdict is the JSON shape the judge must return. CandidateID is the
// 1-based position in the prompt's candidate list, 0 for no match.
type verdict struct {
	Match       bool   `json:"match"`
	CandidateID int    `json:"candidate_id"`
	Reason      string `json:"reason"`
}

// Decide sends the candidate list to the judge and maps its verdict onto a
// decision. An API failure is the only hard error; malformed or invalid
// verdicts degrade to distinguishable rejections.
func (g *Judge) Decide(ctx context.Context, q domain.Query, set domain.CandidateSet) (domain.Decision, domain.CandidateSet, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(q, set)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.Decision{}, nil, fmt.Errorf("judge call: %w: %w", domain.ErrDownstreamService, err)
	}

	v, err := parseVerdict(resp, len(set))
	if err != nil {
		g.logger.Warn("Judge verdict rejected",
			zap.String("query", q.Normalized()),
			zap.Error(err))
		return rejectionFor(err), set, nil
	}

	if !v.Match {
		return domain.Decision{
			Outcome:   domain.Rejected,
			Rationale: v.Reason,
			Kind:      domain.KindJudge,
		}, set, nil
	}

	return domain.Decision{
		Outcome:     domain.Accepted,
		CandidateID: set[v.CandidateID-1].ID,
		Rationale:   v.Reason,
		Kind:        domain.KindJudge,
	}, set, nil
}

// parseVerdict validates the judge response structurally and against the
// candidate set bounds.
func parseVerdict(resp openai.ChatCompletionResponse, setSize int) (verdict, error) {
	if len(resp.Choices) == 0 {
		return verdict{}, fmt.Errorf("empty completion: %w", domain.ErrDecisionMalformed)
	}

	var v verdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &v); err != nil {
		return verdict{}, fmt.Errorf("parse verdict: %w: %w", domain.ErrDecisionMalformed, err)
	}

	if v.Match && (v.CandidateID < 1 || v.CandidateID > setSize) {
		return verdict{}, fmt.Errorf("candidate_id %d outside 1..%d: %w",
			v.CandidateID, setSize, domain.ErrDecisionInvalid)
	}
	return v, nil
}

// rejectionFor maps a verdict failure onto a rejected decision with the
// matching kind.
func rejectionFor(err error) domain.Decision {
	kind := domain.KindJudgeMalformed
	if errors.Is(err, domain.ErrDecisionInvalid) {
		kind = domain.KindJudgeInvalid
	}
	return domain.Decision{
		Outcome:   domain.Rejected,
		Rationale: err.Error(),
		Kind:      kind,
	}
}
