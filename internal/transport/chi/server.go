// Package chi exposes the resolution and search pipelines over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
	"github.com/kailas-cloud/skumatch/internal/domain/payload"
	logpkg "github.com/kailas-cloud/skumatch/internal/logger"
	healthuc "github.com/kailas-cloud/skumatch/internal/usecase/health"
	"github.com/kailas-cloud/skumatch/internal/usecase/pipeline"
)

// errorCode is the machine-readable error vocabulary of the API.
type errorCode string

const (
	codeBadRequest    errorCode = "bad_request"
	codeNotFound      errorCode = "not_found"
	codeUpstreamError errorCode = "upstream_error"
	codeInternalError errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the two pipelines.
type Server struct {
	resolve       *pipeline.Service
	rank          *pipeline.Service
	health        *healthuc.Service
	defaultCount  int
	maxCount      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	resolve *pipeline.Service,
	rank *pipeline.Service,
	health *healthuc.Service,
	defaultCount int,
	maxCount int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		resolve:      resolve,
		rank:         rank,
		health:       health,
		defaultCount: defaultCount,
		maxCount:     maxCount,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrNoCandidates, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrDecisionInvalid, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrDecisionMalformed, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrVectorizationUnavailable, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrDownstreamService, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes mounts all API endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/resolve", s.Resolve)
	r.Post("/api/v1/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type resolveRequest struct {
	Query string `json:"query_text"`
}

type resolveResponse struct {
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
	Retailer  string  `json:"retailer"`
	Price     string  `json:"price"`
	URL       string  `json:"url"`
	LatencyMs float64 `json:"latency_ms"`
}

// Resolve handles POST /api/v1/resolve: one query in, at most one verified
// product out.
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Query is required")
		return
	}

	res, err := s.resolve.Run(r.Context(), req.Query, 1)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	if res.Status != domain.TraceSuccess {
		msg := "no matching product found"
		if res.Decision.Rationale != "" {
			msg = res.Decision.Rationale
		}
		writeError(w, http.StatusNotFound, codeNotFound, msg)
		return
	}

	match, ok := findCandidate(res.Candidates, res.Decision.CandidateID)
	if !ok {
		s.logger.Error("Accepted candidate missing from result set",
			zap.String("candidate_id", res.Decision.CandidateID))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Title:     match.Title,
		Score:     1.0,
		Retailer:  payload.Retailer(match.Payload),
		Price:     payload.Price(match.Payload),
		URL:       payload.URL(match.Payload),
		LatencyMs: res.LatencyMs,
	})
}

type searchRequest struct {
	Query string `json:"query_text"`
	Count int    `json:"result_count"`
}

type searchResultItem struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Price          string  `json:"price"`
	Rating         float64 `json:"rating,omitempty"`
	Image          string  `json:"image,omitempty"`
	Category       string  `json:"category,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

type searchResponse struct {
	Results   []searchResultItem `json:"results"`
	Source    string             `json:"source"`
	LatencyMs float64            `json:"latency_ms"`
}

// Search handles POST /api/v1/search: ranked product results for a query.
// An empty result list is a valid 200 response.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Query is required")
		return
	}

	count := req.Count
	if count <= 0 {
		count = s.defaultCount
	}
	if count > s.maxCount {
		count = s.maxCount
	}

	res, err := s.rank.Run(r.Context(), req.Query, count)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	items := make([]searchResultItem, 0, len(res.Candidates))
	for _, c := range res.Candidates.Truncate(count) {
		items = append(items, searchResultItem{
			ID:             c.ID,
			Title:          c.Title,
			Price:          payload.Price(c.Payload),
			Rating:         payload.Rating(c.Payload),
			Image:          payload.Image(c.Payload),
			Category:       payload.Category(c.Payload),
			RelevanceScore: c.Rerank,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:   items,
		Source:    res.Source,
		LatencyMs: res.LatencyMs,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func findCandidate(set domain.CandidateSet, id string) (domain.Candidate, bool) {
	for _, c := range set {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Candidate{}, false
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrBadRequest,
		domain.ErrNoCandidates,
		domain.ErrDecisionInvalid,
		domain.ErrDecisionMalformed,
		domain.ErrVectorizationUnavailable,
		domain.ErrDownstreamService,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	// Warn on the request-scoped logger so the entry carries the request id.
	logpkg.FromContext(ctx).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
