package dedupe

// Option applies a configuration option to the in-memory Deduper.
type Option func(*windowDeduper)

// WithMaxSize sets how many event IDs are remembered. Zero or negative
// remembers every ID.
func WithMaxSize(n int) Option {
	return func(d *windowDeduper) {
		d.window = n
	}
}
