// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/touchline/internal/app"
	"github.com/okian/touchline/internal/domain/types"
	"github.com/okian/touchline/pkg/logger"
)

// defaultMaxBodyBytes bounds JSON request bodies.
const defaultMaxBodyBytes = 1 << 20

// Dependencies bundles everything the HTTP handlers call.
type Dependencies interface {
	PathDependencies
	PeopleDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	pathHandler   *PathHandler
	peopleHandler *PeopleHandler

	limiter *RateLimiter
	logger  logger.Logger
	maxBody int64
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimiter limits requests across all routes; nil disables limiting.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes bounds JSON request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		logger:  logger.Nop(),
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.pathHandler = NewPathHandler(deps, s.maxBody)
	s.peopleHandler = NewPeopleHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/path", MetricsMiddleware(s.pathHandler.HandlePath, "path"))
	mux.HandleFunc("/paths/batch", MetricsMiddleware(s.pathHandler.HandleBatch, "paths_batch"))
	mux.HandleFunc("/people/search", MetricsMiddleware(s.peopleHandler.HandleSearch, "people_search"))
	mux.HandleFunc("/people/", MetricsMiddleware(s.peopleHandler.HandleGetPerson, "people"))
}

// Handler wraps mux with request ids and rate limiting.
func (s *Server) Handler(mux http.Handler) http.Handler {
	return RequestIDMiddleware(RateLimitMiddleware(mux, s.limiter), s.logger)
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: w.Header().Get(HeaderRequestID)})
}

// writeServiceError translates service sentinels to statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrTooManyPairs):
		writeError(w, http.StatusBadRequest, "too_many_pairs", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

// statusFor maps a path result to its HTTP status. Found and not found are
// both answers.
func statusFor(res types.Result) int {
	switch res.Error {
	case "":
		return http.StatusOK
	case types.ErrorSamePerson, types.ErrorInvalidRequest:
		return http.StatusBadRequest
	case types.ErrorPersonNotFound:
		return http.StatusNotFound
	case types.ErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
