package browser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/alexballas/xthumbgrid/gallery"
)

// Grid is a scrolling justified grid backed by a gallery.View. Layout and
// thumbnail loading run in the view; the grid only mirrors its snapshots.
type Grid struct {
	widget.BaseWidget

	view    *gallery.View
	content *fyne.Container
	scroll  *container.Scroll
	marquee *marquee
	zoom    *zoomScrollOverlay

	cells    map[gallery.Handle]*thumbCell
	selected map[gallery.Handle]bool
	opacity  float64
	baseRow  int
	level    int
	size     fyne.Size

	// OnActivated fires when an item is double tapped.
	OnActivated func(gallery.ItemInfo)
	// OnSelectionChanged fires with the selected items in display order.
	OnSelectionChanged func([]gallery.ItemInfo)
	// OnZoomChanged fires with the new zoom level index.
	OnZoomChanged func(level int)
}

// NewGrid creates a grid and its view. Notifications from the view are
// hopped onto the fyne thread unless opts.Dispatch says otherwise.
func NewGrid(opts gallery.Options) *Grid {
	g := &Grid{
		cells:    make(map[gallery.Handle]*thumbCell),
		selected: make(map[gallery.Handle]bool),
		opacity:  1,
		level:    defaultZoomLevelIndex,
	}
	if opts.Dispatch == nil {
		opts.Dispatch = fyne.Do
	}
	afterLayout, itemUpdate, frame := opts.OnAfterLayout, opts.OnItemUpdate, opts.OnFrame
	opts.OnAfterLayout = func() {
		g.sync()
		if afterLayout != nil {
			afterLayout()
		}
	}
	opts.OnItemUpdate = func(info gallery.ItemInfo) {
		g.updateCell(info)
		if itemUpdate != nil {
			itemUpdate(info)
		}
	}
	opts.OnFrame = func(opacity float64) {
		g.setOpacity(opacity)
		if frame != nil {
			frame(opacity)
		}
	}

	g.view = gallery.NewView(opts)
	g.baseRow = g.view.RowHeight()
	g.content = container.New(&gridLayout{g: g})
	g.scroll = container.NewVScroll(g.content)
	g.scroll.OnScrolled = func(p fyne.Position) {
		g.view.ScrollTo(int(p.Y))
	}
	g.marquee = newMarquee(g.scroll, g.onMarquee, nil)
	g.zoom = newZoomScrollOverlay(g.adjustZoom)
	g.ExtendBaseWidget(g)
	return g
}

// View returns the model behind the grid.
func (g *Grid) View() *gallery.View { return g.view }

// Append adds an item at the end of the grid.
func (g *Grid) Append(path string, kind gallery.Kind, meta *gallery.Meta) gallery.Handle {
	return g.view.Append(path, kind, meta)
}

// Clear removes every item.
func (g *Grid) Clear() {
	for _, info := range g.view.Items() {
		g.view.Remove(info.Handle)
	}
	g.selected = make(map[gallery.Handle]bool)
	g.scroll.ScrollToTop()
}

// Selected returns the selected items in display order.
func (g *Grid) Selected() []gallery.ItemInfo {
	var out []gallery.ItemInfo
	for _, info := range g.view.Items() {
		if g.selected[info.Handle] {
			out = append(out, info)
		}
	}
	return out
}

// ZoomLevel returns the current zoom level index.
func (g *Grid) ZoomLevel() int { return g.level }

// SetZoomLevel scales the row height by one of the zoom levels.
func (g *Grid) SetZoomLevel(level int) {
	level = clampZoomLevelIndex(level)
	if level == g.level {
		return
	}
	g.level = level
	g.view.SetRowHeight(zoomedRowHeight(g.baseRow, level))
	if g.OnZoomChanged != nil {
		g.OnZoomChanged(level)
	}
}

func (g *Grid) adjustZoom(steps int) {
	g.SetZoomLevel(g.level + steps)
}

// Close stops the view's background work.
func (g *Grid) Close() {
	g.view.Close()
}

func (g *Grid) CreateRenderer() fyne.WidgetRenderer {
	return &gridRenderer{g: g}
}

// sync mirrors the view's items after a layout pass.
func (g *Grid) sync() {
	items := g.view.Items()
	objects := make([]fyne.CanvasObject, 0, len(items))
	live := make(map[gallery.Handle]bool, len(items))
	for _, info := range items {
		live[info.Handle] = true
		c := g.cells[info.Handle]
		if c == nil {
			c = newThumbCell(g)
			c.setOpacity(g.opacity)
			g.cells[info.Handle] = c
		}
		c.setInfo(info)
		c.setSelected(g.selected[info.Handle])
		objects = append(objects, c)
	}
	for h := range g.cells {
		if !live[h] {
			delete(g.cells, h)
			delete(g.selected, h)
		}
	}
	g.content.Objects = objects
	g.content.Refresh()
}

func (g *Grid) updateCell(info gallery.ItemInfo) {
	c := g.cells[info.Handle]
	if c == nil {
		return
	}
	if c.setInfo(info) {
		c.Refresh()
	}
}

func (g *Grid) setOpacity(opacity float64) {
	g.opacity = opacity
	for _, c := range g.cells {
		c.setOpacity(opacity)
	}
}

func (g *Grid) activate(info gallery.ItemInfo) {
	if g.OnActivated != nil {
		g.OnActivated(info)
	}
}

func (g *Grid) selectOnly(h gallery.Handle) {
	g.setSelection(map[gallery.Handle]bool{h: true})
}

func (g *Grid) setSelection(sel map[gallery.Handle]bool) {
	g.selected = sel
	for h, c := range g.cells {
		c.setSelected(sel[h])
	}
	if g.OnSelectionChanged != nil {
		g.OnSelectionChanged(g.Selected())
	}
}

// onMarquee selects every placed cell intersecting the rubber band. The
// band is in viewport coordinates.
func (g *Grid) onMarquee(tl, br fyne.Position) {
	off := g.scroll.Offset
	x1, y1 := tl.X+off.X, tl.Y+off.Y
	x2, y2 := br.X+off.X, br.Y+off.Y

	sel := make(map[gallery.Handle]bool)
	for h, c := range g.cells {
		b := c.info.Box
		if !c.info.Placed {
			continue
		}
		if float32(b.X) < x2 && float32(b.X+b.W) > x1 && float32(b.Y) < y2 && float32(b.Bottom()) > y1 {
			sel[h] = true
		}
	}
	g.setSelection(sel)
}

type gridRenderer struct {
	g *Grid
}

func (r *gridRenderer) Layout(size fyne.Size) {
	r.g.marquee.Resize(size)
	r.g.zoom.Resize(size)
	if size != r.g.size {
		r.g.size = size
		r.g.view.Resize(int(size.Width), int(size.Height))
	}
}

func (r *gridRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *gridRenderer) Refresh() {
	r.g.marquee.Refresh()
}

func (r *gridRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.g.marquee, r.g.zoom}
}

func (r *gridRenderer) Destroy() {
	r.g.view.Close()
}

// gridLayout places cells at the boxes the view computed.
type gridLayout struct {
	g *Grid
}

func (l *gridLayout) Layout(objects []fyne.CanvasObject, _ fyne.Size) {
	for _, o := range objects {
		c, ok := o.(*thumbCell)
		if !ok {
			continue
		}
		if !c.info.Placed {
			c.Hide()
			continue
		}
		b := c.info.Box
		c.Move(fyne.NewPos(float32(b.X), float32(b.Y)))
		c.Resize(fyne.NewSize(float32(b.W), float32(b.H)))
		c.Show()
	}
}

func (l *gridLayout) MinSize([]fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(0, float32(l.g.view.ContentHeight()))
}
