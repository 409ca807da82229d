package gallery

import "sync"

// Flow layout defaults.
const (
	DefaultRowHeight     = 160
	DefaultFoldersPerRow = 4
	DefaultSliceSize     = 100
)

// FlowOptions configures a FlowLayout.
type FlowOptions struct {
	// MaxWidth is the width rows are fitted to. Nothing is placed while it is zero.
	MaxWidth int
	// RowHeight is the height of picture rows.
	RowHeight int
	// FoldersPerRow is how many folder cells share a row.
	FoldersPerRow int
	// FolderHeight is the height of folder rows; zero makes cells square.
	FolderHeight int
	// SliceSize is the minimum number of children placed per step.
	SliceSize int
}

func (o *FlowOptions) setDefaults() {
	if o.RowHeight <= 0 {
		o.RowHeight = DefaultRowHeight
	}
	if o.FoldersPerRow <= 0 {
		o.FoldersPerRow = DefaultFoldersPerRow
	}
	if o.SliceSize <= 0 {
		o.SliceSize = DefaultSliceSize
	}
}

// FlowLayout packs children into justified rows, a slice at a time.
// Folders and files never share a row. A picture row closes once its
// natural widths reach MaxWidth and is then shrunk to fit exactly; the
// final row keeps its natural widths.
type FlowLayout struct {
	mu   sync.Mutex
	opts FlowOptions

	resume   int
	height   int
	running  bool
	delaying bool
}

// NewFlowLayout returns a layout with defaults applied.
func NewFlowLayout(opts FlowOptions) *FlowLayout {
	opts.setDefaults()
	return &FlowLayout{opts: opts}
}

// MaxWidth returns the current fitting width.
func (f *FlowLayout) MaxWidth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.MaxWidth
}

// SetMaxWidth changes the fitting width and reports whether it changed.
// A change restarts layout from the first child.
func (f *FlowLayout) SetMaxWidth(w int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w == f.opts.MaxWidth {
		return false
	}
	f.opts.MaxWidth = w
	f.resume = 0
	return true
}

// SetRowHeight changes the picture row height and reports whether it
// changed. A change restarts layout from the first child.
func (f *FlowLayout) SetRowHeight(h int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h <= 0 || h == f.opts.RowHeight {
		return false
	}
	f.opts.RowHeight = h
	f.resume = 0
	return true
}

// RowHeight returns the picture row height.
func (f *FlowLayout) RowHeight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.RowHeight
}

// Reset restarts layout from the first child.
func (f *FlowLayout) Reset() {
	f.mu.Lock()
	f.resume = 0
	f.mu.Unlock()
}

// Invalidate makes the next step re-lay every child from index idx on.
func (f *FlowLayout) Invalidate(idx int) {
	f.mu.Lock()
	if idx < f.resume {
		f.resume = idx
	}
	f.mu.Unlock()
}

// Height returns the content height reached by the last placed row.
func (f *FlowLayout) Height() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height
}

// Running reports whether a multi-slice pass is in progress.
func (f *FlowLayout) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// beginDelay marks a delayed layout request as armed. It returns false if
// one is already armed.
func (f *FlowLayout) beginDelay() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delaying {
		return false
	}
	f.delaying = true
	return true
}

func (f *FlowLayout) endDelay() {
	f.mu.Lock()
	f.delaying = false
	f.mu.Unlock()
}

// natural returns the unfitted size of a child.
func (f *FlowLayout) natural(it *item) (w, h int) {
	o := &f.opts
	if it.kind == KindDirectory {
		w = o.MaxWidth / o.FoldersPerRow
		h = o.FolderHeight
		if h <= 0 {
			h = w
		}
		return w, h
	}
	h = o.RowHeight
	if it.meta != nil && it.meta.Width > 0 && it.meta.Height > 0 {
		w = o.RowHeight * it.meta.Width / it.meta.Height
		if w < 1 {
			w = 1
		}
		return w, h
	}
	return o.RowHeight, h
}

// step places children starting at the saved cursor. It returns after at
// least SliceSize children at a row boundary, or when every child is
// placed. done reports the latter.
func (f *FlowLayout) step(children []*item) (done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(children)
	if f.opts.MaxWidth <= 0 {
		f.running = false
		return true
	}
	if n == 0 {
		f.resume, f.height, f.running = 0, 0, false
		return true
	}

	// Restart at the beginning of the row holding the cursor so a partial
	// row is refilled.
	k := min(f.resume, n) - 1
	for k > 0 && !(children[k].placed && children[k].box.RowStart) {
		k--
	}
	y := 0
	if k <= 0 {
		k = 0
	} else {
		y = children[k].box.Y
	}
	f.running = true

	var (
		row       []*item
		widths    []int
		heights   []int
		total     int
		processed int
	)
	flush := func(fit bool) {
		if len(row) == 0 {
			return
		}
		w := widths
		if fit {
			if row[0].kind == KindDirectory {
				w = fillRow(widths, f.opts.MaxWidth)
			} else {
				w = shrinkRow(widths, f.opts.MaxWidth)
			}
		}
		rowH := 0
		for _, h := range heights {
			rowH = max(rowH, h)
		}
		x := 0
		for j, it := range row {
			it.box = Box{X: x, Y: y, W: w[j], H: rowH, RowStart: j == 0}
			it.placed = true
			x += w[j]
		}
		y += rowH
		row, widths, heights, total = row[:0], nil, nil, 0
	}

	for i := k; i < n; i++ {
		it := children[i]
		if len(row) > 0 && row[0].kind != it.kind {
			flush(false)
			if processed >= f.opts.SliceSize {
				f.resume, f.height = i, y
				return false
			}
		}
		w, h := f.natural(it)
		row = append(row, it)
		widths = append(widths, w)
		heights = append(heights, h)
		total += w
		processed++

		full := false
		if it.kind == KindDirectory {
			full = len(row) >= f.opts.FoldersPerRow
		} else {
			full = total >= f.opts.MaxWidth
		}
		if full {
			flush(true)
			if processed >= f.opts.SliceSize && i+1 < n {
				f.resume, f.height = i+1, y
				return false
			}
		}
	}
	flush(false)
	f.resume, f.height, f.running = n, y, false
	return true
}

// shrinkRow fits a row whose natural widths overflow maxWidth. Each width
// loses overflow*w/total of the pre-reduction total; the last one absorbs
// the rounding remainder so the row sums to maxWidth exactly.
func shrinkRow(widths []int, maxWidth int) []int {
	out := make([]int, len(widths))
	copy(out, widths)
	if len(out) == 0 {
		return out
	}
	total := 0
	for _, w := range widths {
		total += w
	}
	overflow := total - maxWidth
	if overflow <= 0 || total == 0 {
		return out
	}
	sum := 0
	for i := 0; i < len(out)-1; i++ {
		out[i] -= overflow * widths[i] / total
		sum += out[i]
	}
	out[len(out)-1] = maxWidth - sum
	return out
}

// fillRow stretches a complete folder row to maxWidth by growing its last cell.
func fillRow(widths []int, maxWidth int) []int {
	out := make([]int, len(widths))
	copy(out, widths)
	if len(out) == 0 {
		return out
	}
	sum := 0
	for _, w := range out[:len(out)-1] {
		sum += w
	}
	out[len(out)-1] = maxWidth - sum
	return out
}
