package service

import (
	"time"

	"github.com/okian/ledgerboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service and its sessions.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets where submission outcomes are delivered.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithTopCount sets how many table entries each session shows.
func WithTopCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topCount = n
		}
	}
}

// WithPollInterval sets how often pending writes are observed.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithSettlementTimeout bounds how long a write may stay pending.
func WithSettlementTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.settlementTimeout = d
		}
	}
}

// WithRefreshTimeout bounds each cache read.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshTimeout = d
		}
	}
}
