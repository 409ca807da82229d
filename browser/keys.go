package browser

import (
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
)

// Attach installs type-to-search and Enter-to-open on w's canvas. Handlers
// already on the canvas keep running first.
func (b *Browser) Attach(w fyne.Window) {
	b.Detach()
	c := w.Canvas()
	b.canvas = c
	b.prevRune = c.OnTypedRune()
	b.prevKey = c.OnTypedKey()
	c.SetOnTypedRune(b.typedRuneHook)
	c.SetOnTypedKey(b.typedKeyHook)
}

// Detach restores the canvas handlers replaced by Attach.
func (b *Browser) Detach() {
	if b.canvas == nil {
		return
	}
	b.canvas.SetOnTypedRune(b.prevRune)
	b.canvas.SetOnTypedKey(b.prevKey)
	b.canvas, b.prevRune, b.prevKey = nil, nil, nil
}

// navigating reports whether focus sits on nothing or on the browser's own
// lists, the only places where typing may be redirected.
func (b *Browser) navigating() bool {
	focused := b.canvas.Focused()
	return focused == nil || focused == b.side.list
}

func (b *Browser) typedRuneHook(r rune) {
	if b.prevRune != nil {
		b.prevRune(r)
	}
	if b.canvas == nil || b.canvas.Focused() == b.search || !b.navigating() {
		return
	}
	b.canvas.Focus(b.search)
	b.search.SetText(b.search.Text + string(r))
	b.search.CursorColumn = len([]rune(b.search.Text))
	b.search.Refresh()
}

func (b *Browser) typedKeyHook(ev *fyne.KeyEvent) {
	if b.prevKey != nil {
		b.prevKey(ev)
	}
	if b.canvas == nil || ev == nil {
		return
	}
	switch ev.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		if !b.navigating() && b.canvas.Focused() != b.search {
			return
		}
		b.openSelection()
	case fyne.KeyEscape:
		if b.search.Text != "" {
			b.search.SetText("")
			b.canvas.Unfocus()
		}
	case fyne.KeyBackspace:
		if b.navigating() && b.dir != nil {
			if parent, err := parentOf(b.dir); err == nil {
				b.SetLocation(parent)
			}
		}
	}
}

// openSelection activates the single selected item, or the only match of
// the current search.
func (b *Browser) openSelection() {
	sel := b.grid.Selected()
	if len(sel) == 0 && b.search.Text != "" {
		items := b.grid.View().Items()
		if len(items) == 1 {
			sel = items
		}
	}
	if len(sel) != 1 {
		return
	}
	b.activate(sel[0])
}

// matchEntries keeps the entries whose base name contains query, ignoring case.
func matchEntries(entries []entry, query string) []entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return entries
	}
	var out []entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(filepath.Base(e.path)), query) {
			out = append(out, e)
		}
	}
	return out
}
