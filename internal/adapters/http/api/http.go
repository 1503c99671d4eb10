// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shalun/raidlogs/internal/adapters/repository"
	"github.com/shalun/raidlogs/internal/domain/encounter"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Upload runs the payload through the admission pipeline and returns the
	// shareable result location for the new run.
	Upload(ctx context.Context, p *encounter.Payload, token string) (UploadResult, error)

	// Read operations expose persisted runs.
	SearchRecent(ctx context.Context, filter repository.RecentFilter) ([]repository.Run, error)
	SearchTop(ctx context.Context, filter repository.TopFilter) ([]repository.Run, error)
	GetRun(ctx context.Context, runID string) (*repository.Run, error)
}

// defaultAuthHeader carries the upload token unless overridden.
const defaultAuthHeader = "X-Auth-Token"

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	uploadHandler *UploadHandler
	searchHandler *SearchHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAuthHeader sets the request header carrying the upload token.
func WithAuthHeader(name string) ServerOption {
	return func(s *Server) {
		if name != "" {
			s.uploadHandler.authHeader = name
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		uploadHandler: NewUploadHandler(deps),
		searchHandler: NewSearchHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/upload", MetricsMiddleware(s.uploadHandler.HandleUpload, "upload"))
	mux.HandleFunc("/search/recent", MetricsMiddleware(s.searchHandler.HandleRecent, "search_recent"))
	mux.HandleFunc("/search/top", MetricsMiddleware(s.searchHandler.HandleTop, "search_top"))
	mux.HandleFunc("/search/id", MetricsMiddleware(s.searchHandler.HandleByID, "search_id"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
