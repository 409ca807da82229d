package gallery

import (
	"sync"
	"time"
)

// DefaultScrollDelay is how long scroll events settle before visibility
// is recomputed.
const DefaultScrollDelay = 500 * time.Millisecond

// ScanFunc recomputes visibility for the band [top, bottom) starting from
// the hint index. It returns the index of the first visible child.
type ScanFunc func(top, bottom, hint int) int

// Viewport debounces scroll offsets and turns them into visibility passes.
type Viewport struct {
	mu      sync.Mutex
	offset  int
	height  int
	margin  int
	hint    int
	enabled bool

	pending bool
	again   bool
	stopped bool
	timer   *time.Timer
	delay   time.Duration

	scan ScanFunc
}

// NewViewport returns an enabled tracker. margin widens the band on both
// sides so items just off screen load ahead of time.
func NewViewport(delay time.Duration, margin int, scan ScanFunc) *Viewport {
	if delay <= 0 {
		delay = DefaultScrollDelay
	}
	return &Viewport{delay: delay, margin: margin, enabled: true, scan: scan}
}

// SetOffset records a scroll position. Offsets arriving while a pass is
// pending coalesce into one more pass after it.
func (v *Viewport) SetOffset(y int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = y
	if v.stopped {
		return
	}
	if v.pending {
		v.again = true
		return
	}
	v.pending = true
	v.timer = time.AfterFunc(v.delay, v.fire)
}

// Offset returns the last recorded scroll position.
func (v *Viewport) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// SetHeight records the visible height.
func (v *Viewport) SetHeight(h int) {
	v.mu.Lock()
	v.height = h
	v.mu.Unlock()
}

// SetEnabled toggles whether passes do any work. Pending passes stay armed.
func (v *Viewport) SetEnabled(on bool) {
	v.mu.Lock()
	v.enabled = on
	v.mu.Unlock()
}

// Enabled reports whether scroll loading is on.
func (v *Viewport) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

// Update runs a pass now unless a debounced one is already pending.
func (v *Viewport) Update() {
	v.mu.Lock()
	pending := v.pending || v.stopped
	v.mu.Unlock()
	if !pending {
		v.pass()
	}
}

// Stop cancels any pending pass.
func (v *Viewport) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.pending, v.again = false, false
	if v.timer != nil {
		v.timer.Stop()
	}
	v.mu.Unlock()
}

func (v *Viewport) fire() {
	v.pass()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.again && !v.stopped {
		v.again = false
		v.timer = time.AfterFunc(v.delay, v.fire)
		return
	}
	v.pending = false
}

func (v *Viewport) pass() {
	v.mu.Lock()
	if !v.enabled || v.scan == nil {
		v.mu.Unlock()
		return
	}
	top := v.offset - v.margin
	bottom := v.offset + v.height + v.margin
	hint := v.hint
	v.mu.Unlock()

	first := v.scan(top, bottom, hint)

	v.mu.Lock()
	v.hint = first
	v.mu.Unlock()
}

// visibleRange returns the children [first, end) whose boxes overlap the
// band [top, bottom). It walks from hint, so the cost follows how far the
// band moved rather than the number of children. Unplaced children end
// the walk.
func visibleRange(children []*item, top, bottom, hint int) (first, end int) {
	n := len(children)
	if n == 0 {
		return 0, 0
	}
	i := min(max(hint, 0), n-1)
	for i > 0 && !children[i].placed {
		i--
	}
	if !children[i].placed {
		return 0, 0
	}
	for i > 0 && children[i-1].placed && children[i-1].box.Bottom() > top {
		i--
	}
	for i < n && children[i].placed && children[i].box.Bottom() <= top {
		i++
	}
	first = i
	for i < n && children[i].placed && children[i].box.Y < bottom {
		i++
	}
	return first, i
}
