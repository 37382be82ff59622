package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
	"github.com/kailas-cloud/skumatch/internal/metrics"
	healthuc "github.com/kailas-cloud/skumatch/internal/usecase/health"
	"github.com/kailas-cloud/skumatch/internal/usecase/pipeline"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// --- pipeline collaborator fakes ---

type stubRetriever struct {
	dense  domain.CandidateSet
	sparse domain.CandidateSet
	err    error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ domain.Query) (domain.CandidateSet, domain.CandidateSet, error) {
	return s.dense, s.sparse, s.err
}

type passthroughFuser struct{}

func (passthroughFuser) Fuse(_ context.Context, _ domain.Query, dense, sparse domain.CandidateSet) (domain.CandidateSet, error) {
	out := append(domain.CandidateSet{}, dense...)
	for _, c := range sparse {
		if !out.Contains(c.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubGate struct {
	decision domain.Decision
	err      error
}

func (s *stubGate) Decide(_ context.Context, _ domain.Query, set domain.CandidateSet) (domain.Decision, domain.CandidateSet, error) {
	if s.err != nil {
		return domain.Decision{}, nil, s.err
	}
	return s.decision, set, nil
}

type noopCache struct{}

func (noopCache) Get(_ context.Context, _ string, _ int) ([]byte, bool) { return nil, false }
func (noopCache) Put(_ context.Context, _ string, _ int, _ []byte)      {}

type noopRecorder struct{}

func (noopRecorder) Record(_ *domain.TraceRecord) {}

type stubPinger struct{ err error }

func (s stubPinger) Ping(_ context.Context) error { return s.err }

func newPipeline(name string, r *stubRetriever, g *stubGate) *pipeline.Service {
	return pipeline.New(name, r, passthroughFuser{}, g, noopCache{}, noopRecorder{}, zap.NewNop())
}

func newRouter(resolve, rank *pipeline.Service, dbErr error) http.Handler {
	srv := NewServer(resolve, rank, healthuc.New(stubPinger{err: dbErr}, nil), 10, 50, zap.NewNop())
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r
}

func productCandidate(id, title string) domain.Candidate {
	return domain.Candidate{
		ID:    id,
		Title: title,
		Payload: map[string]any{
			"name":     title,
			"price":    "$299.99",
			"url":      "/ip/" + id,
			"rating":   4.5,
			"category": "Electronics|Audio|Headphones",
		},
		Rerank: 0.93,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- /api/v1/resolve ---

func TestResolve_Success(t *testing.T) {
	retriever := &stubRetriever{dense: domain.CandidateSet{productCandidate("a1", "Sony WH-1000XM5")}}
	gate := &stubGate{decision: domain.Decision{
		Outcome:     domain.Accepted,
		CandidateID: "a1",
		Rationale:   "same model",
		Kind:        domain.KindJudge,
	}}
	h := newRouter(newPipeline("resolve", retriever, gate), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/resolve", `{"query_text":"sony xm5"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	var resp resolveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != "Sony WH-1000XM5" {
		t.Errorf("title = %q", resp.Title)
	}
	if resp.Score != 1.0 {
		t.Errorf("score = %v", resp.Score)
	}
	if resp.Retailer != "Walmart" {
		t.Errorf("retailer = %q", resp.Retailer)
	}
	if resp.Price != "$299.99" {
		t.Errorf("price = %q", resp.Price)
	}
	if resp.URL != "https://www.walmart.com/ip/a1" {
		t.Errorf("url = %q", resp.URL)
	}
}

func TestResolve_RejectionIs404(t *testing.T) {
	retriever := &stubRetriever{dense: domain.CandidateSet{productCandidate("a1", "Bose QC45")}}
	gate := &stubGate{decision: domain.Decision{
		Outcome:   domain.Rejected,
		Rationale: "different brand",
		Kind:      domain.KindJudge,
	}}
	h := newRouter(newPipeline("resolve", retriever, gate), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/resolve", `{"query_text":"sony xm5"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp errorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Code != codeNotFound || resp.Message != "different brand" {
		t.Errorf("error = %+v", resp)
	}
}

func TestResolve_NoCandidatesIs404(t *testing.T) {
	retriever := &stubRetriever{err: domain.ErrNoCandidates}
	h := newRouter(newPipeline("resolve", retriever, &stubGate{}), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/resolve", `{"query_text":"zzz"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestResolve_EmbeddingDownIs502(t *testing.T) {
	retriever := &stubRetriever{err: domain.ErrVectorizationUnavailable}
	h := newRouter(newPipeline("resolve", retriever, &stubGate{}), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/resolve", `{"query_text":"sony xm5"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp errorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Code != codeUpstreamError {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestResolve_BadRequests(t *testing.T) {
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{broken`},
		{"missing query", `{}`},
		{"empty query", `{"query_text":""}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/api/v1/resolve", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rr.Code)
			}
		})
	}
}

// --- /api/v1/search ---

func TestSearch_ReturnsShapedResults(t *testing.T) {
	retriever := &stubRetriever{dense: domain.CandidateSet{
		productCandidate("a1", "Sony WH-1000XM5"),
		productCandidate("b2", "Sony WH-1000XM4"),
	}}
	gate := &stubGate{decision: domain.Decision{
		Outcome:     domain.Accepted,
		CandidateID: "a1",
		Kind:        domain.KindThreshold,
	}}
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", retriever, gate), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/search", `{"query_text":"sony headphones","result_count":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d", len(resp.Results))
	}

	first := resp.Results[0]
	if first.ID != "a1" || first.Title != "Sony WH-1000XM5" {
		t.Errorf("first = %+v", first)
	}
	if first.Rating != 4.5 || first.Category != "Headphones" {
		t.Errorf("payload fields = %+v", first)
	}
	if first.RelevanceScore != 0.93 {
		t.Errorf("relevance = %v", first.RelevanceScore)
	}
	if resp.Source != pipeline.SourceLive {
		t.Errorf("source = %q", resp.Source)
	}
}

func TestSearch_EmptyIs200WithEmptySource(t *testing.T) {
	retriever := &stubRetriever{err: domain.ErrNoCandidates}
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", retriever, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/search", `{"query_text":"zzz"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %v", resp.Results)
	}
	if resp.Source != pipeline.SourceEmpty {
		t.Errorf("source = %q", resp.Source)
	}
}

func TestSearch_CountClampedToMax(t *testing.T) {
	set := make(domain.CandidateSet, 0, 60)
	for i := 0; i < 60; i++ {
		set = append(set, productCandidate(string(rune('a'+i%26))+strings.Repeat("x", i/26+1), "t"))
	}
	retriever := &stubRetriever{dense: set}
	gate := &stubGate{decision: domain.Decision{Outcome: domain.Accepted, CandidateID: set[0].ID, Kind: domain.KindThreshold}}
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", retriever, gate), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/search", `{"query_text":"sony","result_count":500}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp searchResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Results) > 50 {
		t.Errorf("results = %d, want <= 50", len(resp.Results))
	}
}

func TestSearch_RerankerDownIs502(t *testing.T) {
	retriever := &stubRetriever{dense: domain.CandidateSet{productCandidate("a1", "t")}}
	gate := &stubGate{err: domain.ErrDownstreamService}
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", retriever, gate), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/search", `{"query_text":"sony"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
}

// --- /health ---

func TestHealth_OK(t *testing.T) {
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestHealth_DatabaseDownIs503(t *testing.T) {
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", &stubRetriever{}, &stubGate{}),
		context.DeadlineExceeded)

	rr := doJSON(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

// --- /metrics ---

func TestMetrics_Exposed(t *testing.T) {
	h := newRouter(newPipeline("resolve", &stubRetriever{}, &stubGate{}), newPipeline("rank", &stubRetriever{}, &stubGate{}), nil)

	rr := doJSON(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Error("empty metrics body")
	}
}
