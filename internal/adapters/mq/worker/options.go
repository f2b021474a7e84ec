// Package worker runs the ledger node's block producer.
package worker

import (
	"time"

	"github.com/okian/ledgerboard/pkg/logger"
)

// Option applies a configuration option to the BlockWorker.
type Option func(*BlockWorker)

// WithName sets the worker name for logging.
func WithName(name string) Option {
	return func(w *BlockWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *BlockWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithBlockTime sets the simulated inclusion delay range. A zero range
// produces blocks as soon as transactions arrive.
func WithBlockTime(minDelay, maxDelay time.Duration) Option {
	return func(w *BlockWorker) {
		if minDelay >= 0 && maxDelay >= minDelay {
			w.minDelay = minDelay
			w.maxDelay = maxDelay
		}
	}
}

// WithMaxBlockTxs caps how many transactions one block includes.
func WithMaxBlockTxs(n int) Option {
	return func(w *BlockWorker) {
		if n > 0 {
			w.maxBlockTxs = n
		}
	}
}

// WithClock replaces time.Now for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *BlockWorker) {
		if now != nil {
			w.now = now
		}
	}
}
