package viewmodel

import (
	"time"

	"github.com/okian/ledgerboard/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTopCount sets how many table entries are fetched.
func WithTopCount(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.topCount = n
		}
	}
}

// WithRefreshTimeout bounds each slot read. Zero means the caller's context
// is used as is.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
