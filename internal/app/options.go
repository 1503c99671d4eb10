package service

import (
	"time"

	"github.com/shalun/raidlogs/internal/domain/admission"
	"github.com/shalun/raidlogs/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLimits sets the admission bounds.
func WithLimits(limits admission.Limits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithAllowAnonymous disables the upload token check.
func WithAllowAnonymous(allow bool) Option {
	return func(s *Service) {
		s.allowAnonymous = allow
	}
}

// WithRunIDLength sets the public run id length.
func WithRunIDLength(length int) Option {
	return func(s *Service) {
		if length > 0 {
			s.runIDLength = length
		}
	}
}

// WithRunURLBase sets the base URL prepended to run ids in upload responses.
func WithRunURLBase(base string) Option {
	return func(s *Service) {
		s.runURLBase = base
	}
}

// WithRecentLimit sets the result cap for recent-run searches.
func WithRecentLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.recentLimit = limit
		}
	}
}

// WithTopLimit sets the result cap for top-run searches.
func WithTopLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.topLimit = limit
		}
	}
}

// WithClock injects the time source used by the admission time check.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
