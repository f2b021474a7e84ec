package chain

import (
	"time"

	"github.com/okian/ledgerboard/pkg/logger"
)

// Option applies a configuration option to the Node.
type Option func(*Node)

// WithCapacity bounds the top table.
func WithCapacity(capacity int) Option {
	return func(n *Node) {
		if capacity > 0 {
			n.capacity = capacity
		}
	}
}

// WithMempoolSize bounds accepted but unsettled transactions.
func WithMempoolSize(size int) Option {
	return func(n *Node) {
		if size > 0 {
			n.mempoolSize = size
		}
	}
}

// WithBlockTime sets the simulated inclusion delay range.
func WithBlockTime(minDelay, maxDelay time.Duration) Option {
	return func(n *Node) {
		if minDelay >= 0 && maxDelay >= minDelay {
			n.blockMin, n.blockMax = minDelay, maxDelay
		}
	}
}

// WithMaxGameNameLength makes longer game names revert at settlement.
func WithMaxGameNameLength(length int) Option {
	return func(n *Node) {
		if length > 0 {
			n.maxNameLen = length
		}
	}
}

// WithOwner sets the address allowed to reset the table.
func WithOwner(owner string) Option {
	return func(n *Node) {
		n.ownerHex = owner
	}
}

// WithDedupeSize sets how many references are remembered for replay
// protection and receipt lookups.
func WithDedupeSize(size int) Option {
	return func(n *Node) {
		if size > 0 {
			n.retention = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithClock replaces time.Now for acceptance times and block timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Node) {
		if now != nil {
			n.now = now
		}
	}
}
