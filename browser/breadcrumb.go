package browser

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// breadcrumb is the path bar: one button per ancestor of the location.
type breadcrumb struct {
	nav     Navigator
	content *fyne.Container
	scroll  *container.Scroll
}

func newBreadcrumb(nav Navigator) *breadcrumb {
	b := &breadcrumb{
		nav:     nav,
		content: container.NewHBox(),
	}
	b.scroll = container.NewHScroll(container.NewPadded(b.content))
	return b
}

var errNoParent = errors.New("browser: no parent folder")

// parentOf returns the listable parent of dir.
func parentOf(dir fyne.ListableURI) (fyne.ListableURI, error) {
	parent, err := storage.Parent(dir)
	if err != nil {
		return nil, err
	}
	if parent == nil || parent.String() == dir.String() {
		return nil, errNoParent
	}
	return storage.ListerForURI(parent)
}

// ancestors returns dir and its parents, root first.
func ancestors(dir fyne.ListableURI) []fyne.ListableURI {
	var chain []fyne.ListableURI
	for current := dir; current != nil; {
		chain = append(chain, current)
		parent, err := parentOf(current)
		if err != nil {
			break
		}
		current = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (b *breadcrumb) update(dir fyne.ListableURI) {
	b.content.Objects = nil
	for _, loc := range ancestors(dir) {
		target := loc
		name := target.Name()
		if name == "" {
			name = target.Path()
		}
		b.content.Add(widget.NewButton(name, func() {
			b.nav.SetLocation(target)
		}))
	}
	b.content.Refresh()
	b.scroll.Offset = fyne.NewPos(b.content.MinSize().Width, 0)
	b.scroll.Refresh()
}
