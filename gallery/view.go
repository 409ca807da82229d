package gallery

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexballas/xthumbgrid/thumbcache"
	"github.com/alexballas/xthumbgrid/thumbnail"
	"github.com/rs/zerolog"
)

// View defaults.
const (
	DefaultLayoutDelay   = 100 * time.Millisecond
	DefaultFadeDuration  = 400 * time.Millisecond
	DefaultCoverWidth    = 240
	DefaultMaxThumbWidth = 480

	// fadeHold is the progress the relayout fade waits at, fully transparent.
	fadeHold = 0.5
)

// Options configures a View. Zero values pick the defaults.
type Options struct {
	Cache   *thumbcache.Cache
	Service DecodeService
	Roots   RootResolver

	Layout         FlowOptions
	CoverWidth     int
	MaxThumbWidth  int
	ViewportMargin int

	Heartbeat    time.Duration
	ScrollDelay  time.Duration
	LayoutDelay  time.Duration
	FadeDuration time.Duration
	FadeDelay    time.Duration

	// Dispatch runs notifications on the UI thread. It defaults to calling
	// the function inline.
	Dispatch func(func())

	// OnVisible fires for every item a visibility pass finds in the band.
	OnVisible func(ItemInfo)
	// OnItemUpdate fires when an item's thumbnail state changes.
	OnItemUpdate func(ItemInfo)
	// OnAfterLayout fires when a layout pass placed every child.
	OnAfterLayout func()
	// OnFrame receives the item opacity while a resize fade runs.
	OnFrame func(opacity float64)

	Logger zerolog.Logger
}

func (o *Options) setDefaults() {
	o.Layout.setDefaults()
	if o.CoverWidth <= 0 {
		o.CoverWidth = DefaultCoverWidth
	}
	if o.MaxThumbWidth <= 0 {
		o.MaxThumbWidth = DefaultMaxThumbWidth
	}
	if o.ViewportMargin <= 0 {
		o.ViewportMargin = o.Layout.RowHeight
	}
	if o.LayoutDelay <= 0 {
		o.LayoutDelay = DefaultLayoutDelay
	}
	if o.FadeDuration <= 0 {
		o.FadeDuration = DefaultFadeDuration
	}
	if o.Dispatch == nil {
		o.Dispatch = func(f func()) { f() }
	}
}

// Stats counts how thumbnails reached a view.
type Stats struct {
	// LoadersCreated counts loaders started for cache misses.
	LoadersCreated int64
	// DirectApplies counts thumbnails linked straight from the cache.
	DirectApplies int64
	Loaded        int64
	Failed        int64
	Rejected      int64
}

// View is the model behind a thumbnail grid: items in display order,
// their layout boxes and their thumbnail states. All methods are safe for
// concurrent use.
type View struct {
	mu       sync.Mutex
	opts     Options
	items    arena
	children []*item
	byPath   map[string][]*item
	cache    *thumbcache.Cache
	linker   *thumbcache.Linker
	service  DecodeService
	roots    RootResolver
	height   int
	closed   bool

	flow     *FlowLayout
	viewport *Viewport
	sched    *Scheduler
	anim     *Animator
	log      zerolog.Logger

	loadersCreated atomic.Int64
	directApplies  atomic.Int64
	loaded         atomic.Int64
	failed         atomic.Int64
	rejected       atomic.Int64
}

// NewView creates a view and starts its background worker.
func NewView(opts Options) *View {
	opts.setDefaults()
	v := &View{
		opts:    opts,
		byPath:  make(map[string][]*item),
		service: opts.Service,
		roots:   opts.Roots,
		flow:    NewFlowLayout(opts.Layout),
		log:     opts.Logger.With().Str("component", "gallery").Logger(),
	}
	v.viewport = NewViewport(opts.ScrollDelay, opts.ViewportMargin, v.scanVisible)
	v.anim = NewAnimator(opts.FadeDuration, opts.FadeDelay, DefaultMaxFPS, v.onFrame, func() { v.onFrame(1) })
	if opts.Cache != nil {
		v.cache = opts.Cache
		v.linker = opts.Cache.CreateLinker(v.onCacheRemoved)
	}
	v.sched = NewScheduler((*viewHost)(v), opts.Heartbeat)
	return v
}

// Append adds an item after the existing ones and schedules layout.
// meta may be nil when the picture size is not known yet.
func (v *View) Append(path string, kind Kind, meta *Meta) Handle {
	v.mu.Lock()
	it := &item{path: path, kind: kind, meta: meta, valid: true}
	h := v.items.add(it)
	v.children = append(v.children, it)
	v.byPath[path] = append(v.byPath[path], it)
	v.mu.Unlock()

	v.RequestLayout()
	return h
}

// Remove deletes an item, cancelling its loader. It reports whether the
// handle was live.
func (v *View) Remove(h Handle) bool {
	v.mu.Lock()
	it := v.items.remove(h)
	if it == nil {
		v.mu.Unlock()
		return false
	}
	for i, c := range v.children {
		if c == it {
			v.children = append(v.children[:i], v.children[i+1:]...)
			v.flow.Invalidate(i)
			break
		}
	}
	v.unindexLocked(it)
	if it.state == StateLoaded && v.cache != nil {
		v.cache.Unlink(it.path, v.linker)
	}
	it.thumb = nil
	loader := it.loader
	it.loader = nil
	v.mu.Unlock()

	v.sched.Drop(h)
	if loader != nil {
		loader.Stop()
	}
	v.RequestLayout()
	return true
}

func (v *View) unindexLocked(it *item) {
	same := v.byPath[it.path]
	for i, c := range same {
		if c == it {
			same = append(same[:i], same[i+1:]...)
			break
		}
	}
	if len(same) == 0 {
		delete(v.byPath, it.path)
		return
	}
	v.byPath[it.path] = same
}

// SetCache swaps the shared cache. Loaded thumbnails from the old cache
// are dropped and reload from the new one when visible.
func (v *View) SetCache(c *thumbcache.Cache) {
	v.mu.Lock()
	old, oldLinker := v.cache, v.linker
	if old == c {
		v.mu.Unlock()
		return
	}
	var updates []ItemInfo
	for _, it := range v.children {
		if it.state == StateLoaded {
			it.thumb = nil
			it.state = StatePending
			updates = append(updates, it.info())
		}
	}
	v.cache, v.linker = c, nil
	if c != nil {
		v.linker = c.CreateLinker(v.onCacheRemoved)
	}
	v.mu.Unlock()

	if old != nil {
		old.DeleteLinker(oldLinker)
	}
	v.notify(updates)
	v.viewport.Update()
}

// SetMeta replaces an item's metadata and relays from that item on.
func (v *View) SetMeta(h Handle, meta *Meta) bool {
	v.mu.Lock()
	it := v.items.get(h)
	if it == nil {
		v.mu.Unlock()
		return false
	}
	it.meta = meta
	v.invalidateLocked(it)
	v.mu.Unlock()

	v.RequestLayout()
	return true
}

// SetService swaps the decode service used by future loaders.
func (v *View) SetService(s DecodeService) {
	v.mu.Lock()
	v.service = s
	v.mu.Unlock()
}

// SetRoots swaps the persistent store resolver used by future loaders.
func (v *View) SetRoots(r RootResolver) {
	v.mu.Lock()
	v.roots = r
	v.mu.Unlock()
}

// RequestLayout schedules a layout pass after the layout delay. Requests
// made while one is armed are merged into it.
func (v *View) RequestLayout() {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed || !v.flow.beginDelay() {
		return
	}
	time.AfterFunc(v.opts.LayoutDelay, func() {
		v.flow.endDelay()
		v.sched.RequestLayout()
	})
}

// Resize sets the visible area. A width change restarts layout and plays
// the fade, which stays transparent until the new layout completes.
func (v *View) Resize(width, height int) {
	v.mu.Lock()
	v.height = height
	changed := v.flow.SetMaxWidth(width)
	if changed {
		v.fadeLocked()
	}
	v.mu.Unlock()

	v.viewport.SetHeight(height)
	if changed {
		v.RequestLayout()
	}
}

// SetRowHeight changes the picture row height and relays every item.
func (v *View) SetRowHeight(h int) {
	v.mu.Lock()
	changed := v.flow.SetRowHeight(h)
	if changed {
		v.fadeLocked()
	}
	v.mu.Unlock()

	if changed {
		v.RequestLayout()
	}
}

// fadeLocked plays the relayout fade held in its transparent phase. The
// layout lane releases it once every child is placed.
func (v *View) fadeLocked() {
	if v.closed {
		return
	}
	v.anim.PlayHeld(fadeHold)
}

// RowHeight returns the picture row height.
func (v *View) RowHeight() int { return v.flow.RowHeight() }

// ScrollTo records the scroll offset of the visible area.
func (v *View) ScrollTo(y int) { v.viewport.SetOffset(y) }

// EnableScrollLoading toggles whether scrolling requests thumbnails.
func (v *View) EnableScrollLoading(on bool) { v.viewport.SetEnabled(on) }

// Reload clears a failure and requests the item's thumbnail again.
func (v *View) Reload(h Handle) bool {
	v.mu.Lock()
	it := v.items.get(h)
	if it == nil {
		v.mu.Unlock()
		return false
	}
	var update []ItemInfo
	if it.state == StateFailed || it.state == StateRejected {
		it.state = StatePending
		it.valid = true
		it.broken = false
		update = append(update, it.info())
	}
	submit := it.needsLoad()
	v.mu.Unlock()

	v.notify(update)
	if submit {
		v.sched.Submit(h)
	}
	return true
}

// Item returns a snapshot of one item.
func (v *View) Item(h Handle) (ItemInfo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it := v.items.get(h)
	if it == nil {
		return ItemInfo{}, false
	}
	return it.info(), true
}

// Items returns snapshots of every item in display order.
func (v *View) Items() []ItemInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]ItemInfo, len(v.children))
	for i, it := range v.children {
		out[i] = it.info()
	}
	return out
}

// Len returns the number of items.
func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.children)
}

// ContentHeight returns the height of the laid out content.
func (v *View) ContentHeight() int { return v.flow.Height() }

// Stats returns the load counters.
func (v *View) Stats() Stats {
	return Stats{
		LoadersCreated: v.loadersCreated.Load(),
		DirectApplies:  v.directApplies.Load(),
		Loaded:         v.loaded.Load(),
		Failed:         v.failed.Load(),
		Rejected:       v.rejected.Load(),
	}
}

// Close stops background work and cancels loaders in flight. The view
// must not be used afterwards.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	var loaders []*Loader
	for _, it := range v.children {
		if it.loader != nil {
			loaders = append(loaders, it.loader)
			it.loader = nil
		}
	}
	cache, linker := v.cache, v.linker
	v.mu.Unlock()

	v.viewport.Stop()
	v.anim.Stop()
	v.sched.Close()
	for _, l := range loaders {
		l.Stop()
	}
	if cache != nil {
		cache.DeleteLinker(linker)
	}
}

func (v *View) notify(infos []ItemInfo) {
	if v.opts.OnItemUpdate == nil || len(infos) == 0 {
		return
	}
	v.opts.Dispatch(func() {
		for _, info := range infos {
			v.opts.OnItemUpdate(info)
		}
	})
}

func (v *View) onFrame(progress float64) {
	if v.opts.OnFrame == nil {
		return
	}
	opacity := FadeOpacity(progress)
	v.opts.Dispatch(func() { v.opts.OnFrame(opacity) })
}

// onCacheRemoved runs outside the cache lock whenever an entry this view
// linked was evicted or invalidated. Only items still showing the removed
// buffer are reset; path may have been linked again since.
func (v *View) onCacheRemoved(path string, t *thumbnail.Thumbnail) {
	v.mu.Lock()
	var updates []ItemInfo
	for _, it := range v.byPath[path] {
		if it.state == StateLoaded && it.thumb == t {
			it.thumb = nil
			it.state = StatePending
			updates = append(updates, it.info())
		}
	}
	v.mu.Unlock()
	v.notify(updates)
}

// scanVisible is the viewport's pass: it reports items in the band and
// queues the ones still missing a thumbnail, top to bottom.
func (v *View) scanVisible(top, bottom, hint int) int {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return hint
	}
	first, end := visibleRange(v.children, top, bottom, hint)
	var (
		visible []ItemInfo
		load    []Handle
	)
	for _, it := range v.children[first:end] {
		visible = append(visible, it.info())
		if it.needsLoad() {
			load = append(load, it.handle)
		}
	}
	v.mu.Unlock()

	for _, h := range load {
		v.sched.Submit(h)
	}
	if v.opts.OnVisible != nil && len(visible) > 0 {
		v.opts.Dispatch(func() {
			for _, info := range visible {
				v.opts.OnVisible(info)
			}
		})
	}
	return first
}

// onLoaderDone applies a loader's report to its item and frees the load lane.
func (v *View) onLoaderDone(l *Loader, target Handle, res LoadResult, t *thumbnail.Thumbnail) {
	defer v.sched.LoadFinished()

	v.mu.Lock()
	cache := v.cache
	v.mu.Unlock()

	var insertErr error
	if res == LoadDone {
		if cache == nil {
			insertErr = thumbcache.ErrClosed
		} else {
			insertErr = cache.Insert(l.Path(), t)
		}
	}

	v.mu.Lock()
	it := v.items.get(target)
	if it == nil || it.loader != l {
		v.mu.Unlock()
		return
	}
	it.loader = nil
	relayout := false
	linked := false
	if res == LoadDone && insertErr == nil && v.cache == cache && cache != nil {
		if buf, ok := cache.Link(it.path, v.linker); ok {
			it.thumb = buf
			linked = true
		}
	}
	switch {
	case res == LoadCancelled:
		it.state = StatePending
	case linked:
		it.state = StateLoaded
		relayout = v.adoptMetaLocked(it)
		v.loaded.Add(1)
	case res == LoadDone && insertErr == nil && v.cache != cache:
		// The cache was swapped while loading; the new one is filled on the next pass.
		it.state = StatePending
	case res == LoadDone && insertErr != nil:
		v.log.Debug().Err(insertErr).Str("path", it.path).Msg("thumbnail not admitted")
		it.state = StateRejected
		v.rejected.Add(1)
	default:
		if res == LoadDone {
			v.log.Debug().Str("path", it.path).Msg("thumbnail evicted before it could be linked")
		}
		it.state = StateFailed
		if it.kind == KindFile {
			it.valid = false
			it.broken = true
		}
		v.failed.Add(1)
	}
	info := it.info()
	v.mu.Unlock()

	v.notify([]ItemInfo{info})
	if relayout {
		v.RequestLayout()
	}
}

// adoptMetaLocked gives a file appended without a size the aspect of its
// thumbnail. It reports whether layout must run again.
func (v *View) adoptMetaLocked(it *item) bool {
	if it.kind != KindFile || it.meta != nil || it.thumb == nil || it.thumb.Height <= 0 {
		return false
	}
	it.meta = &Meta{Width: it.thumb.Width, Height: it.thumb.Height}
	v.invalidateLocked(it)
	return true
}

func (v *View) invalidateLocked(it *item) {
	for i, c := range v.children {
		if c == it {
			v.flow.Invalidate(i)
			return
		}
	}
}

// viewHost adapts View to the scheduler's TaskHost.
type viewHost View

func (h *viewHost) RunLoad(target Handle) bool {
	v := (*View)(h)
	v.mu.Lock()
	it := v.items.get(target)
	if v.closed || it == nil || !it.needsLoad() {
		v.mu.Unlock()
		return false
	}
	if v.cache != nil {
		if buf, ok := v.cache.Link(it.path, v.linker); ok {
			it.thumb = buf
			it.state = StateLoaded
			relayout := v.adoptMetaLocked(it)
			info := it.info()
			v.mu.Unlock()
			v.directApplies.Add(1)
			v.notify([]ItemInfo{info})
			if relayout {
				v.RequestLayout()
			}
			return false
		}
	}
	if v.service == nil {
		// Stays pending until a service is set and the item is seen again.
		v.mu.Unlock()
		return false
	}
	l := NewLoader(target, it.path, it.kind, LoaderConfig{
		Roots:      v.roots,
		Service:    v.service,
		CoverWidth: v.opts.CoverWidth,
		MaxWidth:   v.opts.MaxThumbWidth,
		Logger:     v.log,
	}, v.onLoaderDone)
	it.loader = l
	it.state = StateLoading
	info := it.info()
	v.mu.Unlock()

	v.loadersCreated.Add(1)
	v.notify([]ItemInfo{info})
	l.Start()
	return true
}

func (h *viewHost) RunLayout() bool {
	v := (*View)(h)
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return true
	}
	done := v.flow.step(v.children)
	if done {
		v.anim.Release()
	}
	v.mu.Unlock()

	if done {
		if v.opts.OnAfterLayout != nil {
			v.opts.Dispatch(v.opts.OnAfterLayout)
		}
		v.viewport.Update()
	}
	return done
}

func (h *viewHost) Heartbeat() {
	(*View)(h).viewport.Update()
}
