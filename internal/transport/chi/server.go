// Package chi exposes the search service as a JSON HTTP API.
package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthuc "github.com/kailas-cloud/solrq/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

// Server handles the HTTP API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	highlightPre  string
	highlightPost string
	errorHandlers []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithHighlightWrapper sets the markup around highlighted terms.
func WithHighlightWrapper(pre, post string) Option {
	return func(s *Server) { s.highlightPre, s.highlightPost = pre, post }
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		search:        search,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.Search)
	r.Post("/search/params", s.SearchParams)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// searchRequest is a search plus response shaping.
type searchRequest struct {
	searchuc.Request
	// Populate loads instances of hits and reference facet rows; hits whose
	// instance is gone are dropped.
	Populate bool `json:"populate,omitempty"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := s.search.Build(&req.Request)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	res, err := s.search.Execute(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp, err := s.searchResponse(r.Context(), res, req.Populate)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// paramsResponse is the wire form of an assembled query.
type paramsResponse struct {
	Handler   string              `json:"handler"`
	Params    map[string][]string `json:"params"`
	Canonical string              `json:"canonical"`
}

// SearchParams handles POST /search/params: it assembles the query without
// sending it.
func (s *Server) SearchParams(w http.ResponseWriter, r *http.Request) {
	var req searchuc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := s.search.Build(&req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	p, err := s.search.Params(q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	values, err := p.Values()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paramsResponse{
		Handler:   string(q.Handler()),
		Params:    values,
		Canonical: p.Canonical(),
	})
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("path", r.URL.Path))
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
