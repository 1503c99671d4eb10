// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shalun/raidlogs/internal/adapters/repository"
)

// SearchDependencies defines the interface for run search operations.
type SearchDependencies interface {
	SearchRecent(ctx context.Context, filter repository.RecentFilter) ([]repository.Run, error)
	SearchTop(ctx context.Context, filter repository.TopFilter) ([]repository.Run, error)
	GetRun(ctx context.Context, runID string) (*repository.Run, error)
}

// SearchHandler handles the three run search endpoints.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// recentRequest mirrors the OpenAPI schema for POST /search/recent. Absent
// fields do not constrain the query.
type recentRequest struct {
	Region        *string `json:"region,omitempty"`
	HuntingZoneID *int64  `json:"huntingZoneId,omitempty"`
	BossID        *int64  `json:"bossId,omitempty"`
	IsShame       *bool   `json:"isShame,omitempty"`
	PlayerClass   *string `json:"playerClass,omitempty"`
	ExcludeP2W    bool    `json:"excludeP2wConsums,omitempty"`
}

// topRequest mirrors the OpenAPI schema for POST /search/top. All selector
// fields are required.
type topRequest struct {
	Region        string `json:"region"`
	HuntingZoneID int64  `json:"huntingZoneId"`
	BossID        int64  `json:"bossId"`
	PlayerClass   string `json:"playerClass"`
	ExcludeP2W    bool   `json:"excludeP2wConsums,omitempty"`
}

func (req topRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Region) == "":
		return errors.New("missing region")
	case req.HuntingZoneID <= 0:
		return errors.New("missing huntingZoneId")
	case req.BossID <= 0:
		return errors.New("missing bossId")
	case strings.TrimSpace(req.PlayerClass) == "":
		return errors.New("missing playerClass")
	}
	return nil
}

// idRequest mirrors the OpenAPI schema for POST /search/id.
type idRequest struct {
	RunID string `json:"runId"`
}

// HandleRecent handles POST /search/recent requests.
func (h *SearchHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_recent"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req recentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	runs, err := h.deps.SearchRecent(r.Context(), repository.RecentFilter{
		Region:      req.Region,
		ZoneID:      req.HuntingZoneID,
		BossID:      req.BossID,
		IsShame:     req.IsShame,
		PlayerClass: req.PlayerClass,
		ExcludeP2W:  req.ExcludeP2W,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleTop handles POST /search/top requests.
func (h *SearchHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_top"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req topRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	runs, err := h.deps.SearchTop(r.Context(), repository.TopFilter{
		Region:      req.Region,
		ZoneID:      req.HuntingZoneID,
		BossID:      req.BossID,
		PlayerClass: req.PlayerClass,
		ExcludeP2W:  req.ExcludeP2W,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleByID handles POST /search/id requests.
func (h *SearchHandler) HandleByID(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_id"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.RunID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	run, err := h.deps.GetRun(r.Context(), req.RunID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
