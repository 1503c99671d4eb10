package service

import (
	"errors"
	"fmt"

	"github.com/shalun/raidlogs/internal/domain/admission"
)

// Sentinel kinds for upload pipeline errors.
var (
	ErrUnauthorized = errors.New("invalid upload token")
	ErrDuplicate    = errors.New("duplicate upload")
)

// RejectedError reports an admission failure with its machine-readable
// reason, which the HTTP layer forwards to the client.
type RejectedError struct {
	Reason admission.Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upload rejected: %s", e.Reason)
}
