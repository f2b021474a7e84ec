package queue

// Option applies a configuration option to the Mempool.
type Option func(*Mempool)

// WithCapacity sets the maximum number of queued transactions.
func WithCapacity(capacity int) Option {
	return func(q *Mempool) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
