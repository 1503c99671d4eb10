// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/shalun/raidlogs/internal/app"
	"github.com/shalun/raidlogs/internal/domain/encounter"
)

// UploadResult mirrors the write shape returned by admitted uploads.
type UploadResult = service.UploadResult

// UploadDependencies defines the interface for upload processing.
type UploadDependencies interface {
	Upload(ctx context.Context, p *encounter.Payload, token string) (UploadResult, error)
}

// UploadHandler handles run upload requests.
type UploadHandler struct {
	deps       UploadDependencies
	authHeader string
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps UploadDependencies) *UploadHandler {
	return &UploadHandler{deps: deps, authHeader: defaultAuthHeader}
}

// uploadResponse mirrors the OpenAPI schema for POST /upload. Id is the
// shareable result location for the admitted run.
type uploadResponse struct {
	ID string `json:"id"`
}

// HandleUpload handles POST /upload requests.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var payload encounter.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.Upload(r.Context(), &payload, r.Header.Get(h.authHeader))
	if err != nil {
		h.writeUploadError(w, op, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{ID: result.URL})
}

// writeUploadError maps pipeline errors onto the status codes the upload
// client expects: 400 for malformed payloads, 403 with a machine-readable
// reason for anything the admission rules turned away. Storage failures
// answer with a generic internal error; the detail stays in the service logs.
func (h *UploadHandler) writeUploadError(w http.ResponseWriter, op string, err error) {
	var rejected *service.RejectedError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", NewKind(op, ErrUnauthorized))
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusForbidden, "duplicate", Wrap(op, err))
	case errors.As(err, &rejected):
		writeError(w, http.StatusForbidden, string(rejected.Reason), Wrap(op, err))
	case encounter.IsValidation(err):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
	}
}
