package dedupe

// Option configures a Deduper.
type Option func(*window)

// WithMaxSize bounds how many references are remembered.
func WithMaxSize(n int) Option {
	return func(w *window) { w.maxSize = n }
}
