package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrRunNotFound = errors.New("run not found")
)
