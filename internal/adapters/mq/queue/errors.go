package queue

import "errors"

// Sentinel kinds for mempool errors.
var (
	ErrClosed = errors.New("mempool closed")
	ErrFull   = errors.New("mempool full")
)
