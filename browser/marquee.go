package browser

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// marquee wraps the grid content and draws a rubber band selection while
// the pointer drags over empty space. Cells are not draggable, so drags
// starting on them land here too.
type marquee struct {
	widget.BaseWidget
	content fyne.CanvasObject
	rect    *canvas.Rectangle

	start    fyne.Position
	current  fyne.Position
	dragging bool

	onChanged func(tl, br fyne.Position)
	onEnd     func()
}

func newMarquee(content fyne.CanvasObject, onChanged func(tl, br fyne.Position), onEnd func()) *marquee {
	m := &marquee{
		content:   content,
		rect:      canvas.NewRectangle(color.Transparent),
		onChanged: onChanged,
		onEnd:     onEnd,
	}
	m.rect.StrokeColor = theme.Color(theme.ColorNamePrimary)
	m.rect.StrokeWidth = 2
	r, g, b, _ := theme.Color(theme.ColorNameFocus).RGBA()
	m.rect.FillColor = color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 64}
	m.rect.Hide()
	m.ExtendBaseWidget(m)
	return m
}

func (m *marquee) CreateRenderer() fyne.WidgetRenderer {
	return &marqueeRenderer{m: m}
}

func (m *marquee) Dragged(e *fyne.DragEvent) {
	if !m.dragging {
		m.dragging = true
		m.start = e.Position.Subtract(e.Dragged)
		m.rect.Show()
	}
	m.current = e.Position

	tl, br := m.bounds()
	m.rect.Move(tl)
	m.rect.Resize(fyne.NewSize(br.X-tl.X, br.Y-tl.Y))
	if m.onChanged != nil {
		m.onChanged(tl, br)
	}
}

func (m *marquee) DragEnd() {
	if !m.dragging {
		return
	}
	m.dragging = false
	m.rect.Hide()
	m.rect.Refresh()
	if m.onEnd != nil {
		m.onEnd()
	}
}

// bounds returns the normalised top-left and bottom-right corners.
func (m *marquee) bounds() (fyne.Position, fyne.Position) {
	return fyne.NewPos(min(m.start.X, m.current.X), min(m.start.Y, m.current.Y)),
		fyne.NewPos(max(m.start.X, m.current.X), max(m.start.Y, m.current.Y))
}

type marqueeRenderer struct {
	m *marquee
}

func (r *marqueeRenderer) Layout(size fyne.Size) {
	r.m.content.Resize(size)
	r.m.content.Move(fyne.NewPos(0, 0))
}

func (r *marqueeRenderer) MinSize() fyne.Size {
	return r.m.content.MinSize()
}

func (r *marqueeRenderer) Refresh() {
	r.m.content.Refresh()
	r.m.rect.Refresh()
}

func (r *marqueeRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.m.content, r.m.rect}
}

func (r *marqueeRenderer) Destroy() {}

var _ fyne.Draggable = (*marquee)(nil)
