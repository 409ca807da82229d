package browser

import (
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/alexballas/xthumbgrid/gallery"
)

// thumbCell draws one gallery item: its thumbnail when loaded, otherwise
// the file icon, or a broken image for files that could not be decoded.
type thumbCell struct {
	widget.BaseWidget
	grid *Grid
	info gallery.ItemInfo

	icon      *widget.FileIcon
	broken    *widget.Icon
	thumbnail *canvas.Image
	label     *widget.Label
	bg        *canvas.Rectangle

	selected  bool
	lastClick time.Time
}

func newThumbCell(g *Grid) *thumbCell {
	c := &thumbCell{
		grid:      g,
		icon:      widget.NewFileIcon(nil),
		broken:    widget.NewIcon(theme.BrokenImageIcon()),
		thumbnail: canvas.NewImageFromImage(nil),
		label:     widget.NewLabel(""),
		bg:        canvas.NewRectangle(theme.Color(theme.ColorNameSelection)),
	}
	c.thumbnail.FillMode = canvas.ImageFillStretch
	c.thumbnail.Hide()
	c.broken.Hide()
	c.bg.Hide()
	c.label.Alignment = fyne.TextAlignCenter
	c.label.Truncation = fyne.TextTruncateEllipsis
	c.label.Hide()
	c.ExtendBaseWidget(c)
	return c
}

func (c *thumbCell) CreateRenderer() fyne.WidgetRenderer {
	return &thumbCellRenderer{cell: c}
}

// setInfo applies a snapshot of the item and reports whether the cell
// needs a refresh.
func (c *thumbCell) setInfo(info gallery.ItemInfo) bool {
	prev := c.info
	c.info = info
	if prev.Path != info.Path {
		c.icon.SetURI(storage.NewFileURI(info.Path))
		c.label.SetText(filepath.Base(info.Path))
	}
	if prev.Path == info.Path && prev.State == info.State && prev.Broken == info.Broken &&
		prev.Thumbnail == info.Thumbnail {
		return false
	}

	c.thumbnail.Hide()
	c.broken.Hide()
	c.icon.Show()
	c.label.Hide()
	switch {
	case info.Thumbnail != nil:
		c.thumbnail.Image = info.Thumbnail.Image
		c.icon.Hide()
		c.thumbnail.Show()
	case info.Broken:
		c.thumbnail.Image = nil
		c.icon.Hide()
		c.broken.Show()
	default:
		c.thumbnail.Image = nil
	}
	if info.Kind == gallery.KindDirectory {
		c.label.Show()
	}
	return true
}

func (c *thumbCell) setOpacity(opacity float64) {
	c.thumbnail.Translucency = 1 - opacity
	c.thumbnail.Refresh()
}

func (c *thumbCell) setSelected(selected bool) {
	if c.selected == selected {
		return
	}
	c.selected = selected
	if selected {
		c.bg.Show()
	} else {
		c.bg.Hide()
	}
	c.Refresh()
}

func (c *thumbCell) Tapped(*fyne.PointEvent) {
	now := time.Now()
	if now.Sub(c.lastClick) < doubleTapDelay*time.Millisecond {
		c.lastClick = time.Time{}
		c.grid.activate(c.info)
		return
	}
	c.lastClick = now
	c.grid.selectOnly(c.info.Handle)
}

type thumbCellRenderer struct {
	cell *thumbCell
}

func (r *thumbCellRenderer) Layout(size fyne.Size) {
	c := r.cell
	c.bg.Resize(size)

	pad := theme.Padding()
	inner := fyne.NewSize(size.Width-2*pad, size.Height-2*pad)
	if c.info.Kind == gallery.KindDirectory {
		inner.Height -= labelHeight
		c.label.Resize(fyne.NewSize(size.Width, labelHeight))
		c.label.Move(fyne.NewPos(0, size.Height-labelHeight-pad))
	}
	c.thumbnail.Resize(inner)
	c.thumbnail.Move(fyne.NewPos(pad, pad))

	iconSize := fyne.NewSquareSize(fyne.Min(folderIconSize, fyne.Min(inner.Width, inner.Height)))
	iconPos := fyne.NewPos(pad+(inner.Width-iconSize.Width)/2, pad+(inner.Height-iconSize.Height)/2)
	for _, o := range []fyne.CanvasObject{c.icon, c.broken} {
		o.Resize(iconSize)
		o.Move(iconPos)
	}
}

func (r *thumbCellRenderer) MinSize() fyne.Size {
	return fyne.NewSquareSize(theme.Padding() * 2)
}

func (r *thumbCellRenderer) Refresh() {
	r.cell.bg.Refresh()
	r.cell.icon.Refresh()
	r.cell.broken.Refresh()
	r.cell.thumbnail.Refresh()
	r.cell.label.Refresh()
	r.Layout(r.cell.Size())
}

func (r *thumbCellRenderer) Objects() []fyne.CanvasObject {
	c := r.cell
	return []fyne.CanvasObject{c.bg, c.thumbnail, c.icon, c.broken, c.label}
}

func (r *thumbCellRenderer) Destroy() {}
