package thumbcache

import (
	"container/list"
	"errors"
	"sync"

	"github.com/alexballas/xthumbgrid/thumbnail"
	"github.com/rs/zerolog"
)

var (
	// ErrRejected is returned by Insert when the buffer cannot fit even in an empty cache.
	ErrRejected = errors.New("thumbcache: entry larger than cache")
	// ErrClosed is returned by Insert after Close.
	ErrClosed = errors.New("thumbcache: closed")
)

type entry struct {
	path  string
	thumb *thumbnail.Thumbnail
	size  int64
}

// Linker binds cache entries to the consumers of one view.
// Its reference counts are guarded by the owning cache's lock.
type Linker struct {
	cache     *Cache
	onRemoved RemovedFunc
	refs      map[string]int
}

// Refs returns how many live references this linker holds on path.
func (l *Linker) Refs(path string) int {
	l.cache.mu.Lock()
	defer l.cache.mu.Unlock()
	return l.refs[path]
}

// RemovedFunc receives the path and the buffer of an entry that left the
// cache. It runs after the cache lock is released, so by then path may
// already hold a newer buffer.
type RemovedFunc func(path string, t *thumbnail.Thumbnail)

type removal struct {
	linker *Linker
	path   string
	thumb  *thumbnail.Thumbnail
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries *list.List // front = oldest
	index   map[string]*list.Element
	size    int64
	maxSize int64
	linkers map[*Linker]struct{}
	closed  bool

	metrics Metrics
	log     zerolog.Logger
}

// New constructs a cache bounded by opt.MaxSize bytes.
func New(opt Options) *Cache {
	if opt.MaxSize <= 0 {
		panic("thumbcache: MaxSize must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &Cache{
		entries: list.New(),
		index:   make(map[string]*list.Element),
		maxSize: opt.MaxSize,
		linkers: make(map[*Linker]struct{}),
		metrics: opt.Metrics,
		log:     opt.Logger,
	}
}

// Insert admits t under path, evicting the oldest entries needed to make
// room. On ErrRejected the cache is left untouched.
func (c *Cache) Insert(path string, t *thumbnail.Thumbnail) error {
	n := t.ByteSize()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if n > c.maxSize {
		c.metrics.Reject()
		c.mu.Unlock()
		c.log.Debug().Str("path", path).Int64("bytes", n).Int64("max", c.maxSize).Msg("thumbnail rejected")
		return ErrRejected
	}

	old := c.index[path]
	base := c.size
	if old != nil {
		base -= old.Value.(*entry).size
	}

	// Minimal oldest-first prefix whose removal lets the new entry fit.
	var victims []*list.Element
	if base+n > c.maxSize {
		freed := int64(0)
		for e := c.entries.Front(); e != nil && base-freed+n > c.maxSize; e = e.Next() {
			if e == old {
				continue
			}
			victims = append(victims, e)
			freed += e.Value.(*entry).size
		}
	}

	var removed []removal
	if old != nil {
		removed = c.removeLocked(old, EvictInvalidate, removed)
	}
	for _, e := range victims {
		removed = c.removeLocked(e, EvictCapacity, removed)
	}

	c.index[path] = c.entries.PushBack(&entry{path: path, thumb: t, size: n})
	c.size += n
	c.metrics.Size(c.entries.Len(), c.size)
	c.mu.Unlock()

	if len(victims) > 0 {
		c.log.Debug().Str("path", path).Int("evicted", len(victims)).Msg("evicted thumbnails to admit entry")
	}
	notify(removed)
	return nil
}

// CreateLinker registers a new consumer binding. onRemoved is called for
// every referenced entry that leaves the cache.
func (c *Cache) CreateLinker(onRemoved RemovedFunc) *Linker {
	l := &Linker{cache: c, onRemoved: onRemoved, refs: make(map[string]int)}
	c.mu.Lock()
	c.linkers[l] = struct{}{}
	c.mu.Unlock()
	return l
}

// DeleteLinker drops every reference l holds. Shared entries stay resident.
func (c *Cache) DeleteLinker(l *Linker) {
	if l == nil {
		return
	}
	c.mu.Lock()
	delete(c.linkers, l)
	clear(l.refs)
	c.mu.Unlock()
}

// Link returns the buffer cached under path and counts a reference for l.
// The buffer is read-only and valid until l's removal callback reports path.
func (c *Cache) Link(path string, l *Linker) (*thumbnail.Thumbnail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.linkers[l]; !ok {
		return nil, false
	}
	e, ok := c.index[path]
	if !ok {
		c.metrics.Miss()
		return nil, false
	}
	c.metrics.Hit()
	l.refs[path]++
	return e.Value.(*entry).thumb, true
}

// Unlink drops one reference of l on path. It never evicts.
func (c *Cache) Unlink(path string, l *Linker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := l.refs[path]; n > 1 {
		l.refs[path] = n - 1
	} else {
		delete(l.refs, path)
	}
}

// Invalidate removes path and notifies its linkers. Reports whether it was resident.
func (c *Cache) Invalidate(path string) bool {
	c.mu.Lock()
	e, ok := c.index[path]
	var removed []removal
	if ok {
		removed = c.removeLocked(e, EvictInvalidate, nil)
		c.metrics.Size(c.entries.Len(), c.size)
	}
	c.mu.Unlock()

	notify(removed)
	return ok
}

// Contains reports whether path is resident, without counting a hit.
func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[path]
	return ok
}

// Refs returns the summed references of every linker on path.
func (c *Cache) Refs(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for l := range c.linkers {
		total += l.refs[path]
	}
	return total
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Size returns the summed ByteSize of resident entries.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Cache) MaxSize() int64 { return c.maxSize }

// Close releases every entry and notifies linkers. Later Inserts fail with ErrClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	var removed []removal
	for e := c.entries.Front(); e != nil; {
		next := e.Next()
		removed = c.removeLocked(e, EvictInvalidate, removed)
		e = next
	}
	c.closed = true
	c.metrics.Size(0, 0)
	c.mu.Unlock()

	notify(removed)
	return nil
}

// removeLocked frees e and queues removal notices for every linker that
// still references its path. c.mu must be held.
func (c *Cache) removeLocked(e *list.Element, reason EvictReason, out []removal) []removal {
	ent := e.Value.(*entry)
	thumb := ent.thumb
	c.entries.Remove(e)
	delete(c.index, ent.path)
	c.size -= ent.size
	ent.thumb = nil
	c.metrics.Evict(reason)

	for l := range c.linkers {
		if l.refs[ent.path] > 0 {
			delete(l.refs, ent.path)
			out = append(out, removal{linker: l, path: ent.path, thumb: thumb})
		}
	}
	return out
}

func notify(removed []removal) {
	for _, r := range removed {
		if r.linker.onRemoved != nil {
			r.linker.onRemoved(r.path, r.thumb)
		}
	}
}
