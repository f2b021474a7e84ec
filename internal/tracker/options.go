package tracker

import (
	"time"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithPollInterval sets how often a pending reference is observed.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.poll = d
		}
	}
}

// WithTimeout bounds how long a reference may stay pending before the
// attempt fails with a timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTransitionHook is called for every phase change, under no lock.
func WithTransitionHook(fn func(from, to model.Phase)) Option {
	return func(t *Tracker) {
		t.hook = fn
	}
}
