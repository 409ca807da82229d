package thumbcache

import "github.com/rs/zerolog"

// EvictReason explains why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity: removed to admit a newer entry.
	EvictCapacity EvictReason = iota
	// EvictInvalidate: removed explicitly or replaced by a newer buffer for the same path.
	EvictInvalidate
)

// Metrics exposes cache-level observability hooks.
// NoopMetrics is used when none is configured.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Reject()
	Size(entries int, bytes int64)
}

// Options configures a Cache. MaxSize is required.
type Options struct {
	// MaxSize bounds the summed ByteSize of all resident thumbnails.
	MaxSize int64

	Metrics Metrics
	Logger  zerolog.Logger
}
