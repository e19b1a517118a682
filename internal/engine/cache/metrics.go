package cache

// EvictReason explains why a listing left the Store.
type EvictReason int

const (
	// EvictLazy means the listing was found expired while answering a query.
	EvictLazy EvictReason = iota
	// EvictSweep means the listing was removed by a full-scan sweep.
	EvictSweep
)

// String returns a stable label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictLazy:
		return "lazy"
	case EvictSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// Metrics exposes Store-level observability hooks.
// NoopMetrics is used when no backend is configured.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int)          {}

var _ Metrics = NoopMetrics{}
