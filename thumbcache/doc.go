// Package thumbcache is a size-bounded store of decoded thumbnails keyed by
// path, shared between views.
//
// Entries are kept in insertion order. When an Insert does not fit, the
// smallest oldest-first prefix of entries that makes room is evicted; if
// even an empty cache could not hold the new buffer the Insert is rejected
// and nothing changes.
//
// Views attach to a cache through a Linker. Link hands out a read-only
// buffer and counts the reference per path; Unlink drops it. Reference
// counts never keep an entry alive: capacity eviction always wins and every
// Linker still referencing an evicted path is told through its removal
// callback, so the view can clear whatever it was displaying.
//
// Removal callbacks run after the cache lock is released, on the goroutine
// that caused the eviction. They may call back into the cache.
package thumbcache
