package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain"
	answeruc "github.com/cosmos-nexus/nexus/internal/usecase/answer"
	healthuc "github.com/cosmos-nexus/nexus/internal/usecase/health"
	searchuc "github.com/cosmos-nexus/nexus/internal/usecase/search"
	"github.com/cosmos-nexus/nexus/internal/version"
)

// Error codes carried in error responses.
const (
	codeBadRequest           = "bad_request"
	codeEmptyQuery           = "empty_query"
	codeInvalidTopK          = "invalid_top_k"
	codeDimensionMismatch    = "dimension_mismatch"
	codeEmbeddingUnavailable = "embedding_unavailable"
	codeIndexUnavailable     = "index_unavailable"
	codeInternalError        = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResultItem struct {
	Score    float64           `json:"score"`
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

type searchResponse struct {
	Results      []searchResultItem `json:"results"`
	Query        string             `json:"query"`
	TotalResults int                `json:"total_results"`
	AIResponse   string             `json:"ai_response"`
}

type healthResponse struct {
	Status              string `json:"status"`
	IndexConnected      bool   `json:"index_connected"`
	EmbeddingConnected  bool   `json:"embedding_connected"`
	GenerationConnected bool   `json:"generation_connected"`
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server exposes the search pipeline over HTTP.
type Server struct {
	search        *searchuc.Service
	answer        *answeruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	answer *answeruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		answer: answer,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		dimensionMismatchHandler,
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeEmptyQuery),
		sentinelHandler(domain.ErrInvalidTopK, http.StatusBadRequest, codeInvalidTopK),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusBadGateway, codeIndexUnavailable),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Root)
	r.Post("/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Root handles GET /. Liveness only; readiness lives at /health.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Cosmos Nexus API is running!",
		Version: version.Version,
	})
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	matches, err := s.search.Search(ctx, req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Synthesis never fails the request; it degrades to a fallback answer.
	aiResponse := s.answer.Synthesize(ctx, req.Query, matches)

	items := make([]searchResultItem, len(matches))
	for i, m := range matches {
		items[i] = matchToItem(m)
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Results:      items,
		Query:        req.Query,
		TotalResults: len(items),
		AIResponse:   aiResponse,
	})
}

// HealthCheck handles GET /health. Only an index failure makes the
// service unavailable; embedding or generation failures degrade it.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:              string(report.Status),
		IndexConnected:      checkPassed(report, healthuc.CheckIndex),
		EmbeddingConnected:  checkPassed(report, healthuc.CheckEmbedding),
		GenerationConnected: checkPassed(report, healthuc.CheckGeneration),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func checkPassed(report healthuc.Report, name string) bool {
	return report.Checks[name] == healthuc.CheckOK
}

func matchToItem(m domain.Match) searchResultItem {
	meta := m.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return searchResultItem{
		Score:    m.Score,
		ID:       m.ID,
		Metadata: meta,
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidTopK,
		domain.ErrDimensionMismatch,
		domain.ErrEmbeddingUnavailable,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// dimensionMismatchHandler handles ErrDimensionMismatch with the expected and observed sizes.
func dimensionMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		return false
	}
	var dme *domain.DimensionMismatchError
	if errors.As(err, &dme) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":           codeDimensionMismatch,
			"message":        msg,
			"want_dimension": dme.Want,
			"got_dimension":  dme.Got,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, codeDimensionMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
