package gallery

import (
	"time"

	"github.com/alexballas/xthumbgrid/thumbnail"
)

// Kind tags an item as a file or a folder.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

// Meta is optional file metadata known when the item is appended.
type Meta struct {
	Width   int
	Height  int
	ModTime time.Time
}

// ItemState is the thumbnail state of an item.
type ItemState int

const (
	// StatePending items have no thumbnail and will be loaded when visible.
	StatePending ItemState = iota
	// StateLoading items have a loader in flight.
	StateLoading
	// StateLoaded items display a linked cache buffer.
	StateLoaded
	// StateFailed items hit a source failure; file items show a broken indicator.
	StateFailed
	// StateRejected items produced a thumbnail the cache could not admit.
	StateRejected
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Box is an item's position and size in content coordinates.
type Box struct {
	X, Y, W, H int
	// RowStart marks the first item of a laid out row.
	RowStart bool
}

// Bottom returns the first row of pixels below the box.
func (b Box) Bottom() int { return b.Y + b.H }

// Handle identifies an item of a view. A handle outlives its item safely:
// once the item is removed every lookup with the old handle fails.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool { return h.gen == 0 }

type item struct {
	handle Handle
	path   string
	kind   Kind
	meta   *Meta

	state  ItemState
	valid  bool
	broken bool
	thumb  *thumbnail.Thumbnail
	loader *Loader

	box    Box
	placed bool
}

// needsLoad reports whether a visibility event should request a thumbnail.
func (it *item) needsLoad() bool {
	return it.valid && it.state == StatePending && it.loader == nil
}

// ItemInfo is a point-in-time copy of an item for the rendering layer.
type ItemInfo struct {
	Handle    Handle
	Path      string
	Kind      Kind
	State     ItemState
	Broken    bool
	Thumbnail *thumbnail.Thumbnail
	Box       Box
	Placed    bool
}

func (it *item) info() ItemInfo {
	return ItemInfo{
		Handle:    it.handle,
		Path:      it.path,
		Kind:      it.kind,
		State:     it.state,
		Broken:    it.broken,
		Thumbnail: it.thumb,
		Box:       it.box,
		Placed:    it.placed,
	}
}

type slot struct {
	gen  uint32
	item *item
}

// arena owns the items of one view and issues generation-checked handles.
type arena struct {
	slots []slot
	free  []uint32
}

func (a *arena) add(it *item) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	s.item = it
	it.handle = Handle{index: idx, gen: s.gen}
	return it.handle
}

func (a *arena) get(h Handle) *item {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil
	}
	s := a.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.item
}

func (a *arena) remove(h Handle) *item {
	it := a.get(h)
	if it == nil {
		return nil
	}
	s := &a.slots[h.index]
	s.item = nil
	s.gen++ // stale handles now miss even before the slot is reused
	a.free = append(a.free, h.index)
	return it
}
