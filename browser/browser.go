package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/alexballas/xthumbgrid/gallery"
	"github.com/rs/zerolog"
)

// Options configures a Browser.
type Options struct {
	Gallery gallery.Options
	// Filter decides which files are shown. Folders are always shown.
	Filter func(path string) bool
	// ShowHidden includes dot files. It is overridden by the stored preference.
	ShowHidden bool
	// OnOpen fires when a file is double tapped.
	OnOpen func(path string)
	Logger zerolog.Logger
}

// Browser shows one folder at a time as a thumbnail grid.
type Browser struct {
	opts Options
	log  zerolog.Logger

	grid       *Grid
	crumbs     *breadcrumb
	side       *sidebar
	status     *widget.Label
	zoomIn     *widget.Button
	zoomOut    *widget.Button
	search     *widget.Entry
	showHidden bool

	dir     fyne.ListableURI
	entries []entry
	content fyne.CanvasObject

	canvas   fyne.Canvas
	prevRune func(rune)
	prevKey  func(*fyne.KeyEvent)
}

// New builds a browser. It must be called on the fyne thread.
func New(opts Options) *Browser {
	b := &Browser{
		opts:       opts,
		log:        opts.Logger.With().Str("component", "browser").Logger(),
		showHidden: opts.ShowHidden,
		status:     widget.NewLabel(""),
		search:     widget.NewEntry(),
	}
	b.search.SetPlaceHolder("Search...")
	b.search.OnChanged = func(string) { b.populate() }
	prefs := fyne.CurrentApp().Preferences()
	b.showHidden = prefs.BoolWithFallback(showHiddenKey, opts.ShowHidden)

	b.grid = NewGrid(opts.Gallery)
	b.grid.OnActivated = b.activate
	b.grid.OnSelectionChanged = func(sel []gallery.ItemInfo) { b.updateStatus(len(sel)) }
	b.grid.OnZoomChanged = func(level int) {
		prefs.SetInt(zoomLevelKey, level)
		b.updateZoomButtons()
	}
	b.grid.SetZoomLevel(prefs.IntWithFallback(zoomLevelKey, defaultZoomLevelIndex))

	b.crumbs = newBreadcrumb(b)
	b.side = newSidebar(b)
	b.content = b.makeUI()
	return b
}

// Content returns the canvas object to place in a window.
func (b *Browser) Content() fyne.CanvasObject { return b.content }

// Grid returns the thumbnail grid.
func (b *Browser) Grid() *Grid { return b.grid }

// Location returns the folder being shown.
func (b *Browser) Location() fyne.ListableURI { return b.dir }

// SetLocation lists dir into the grid, folders first.
func (b *Browser) SetLocation(dir fyne.ListableURI) {
	if dir == nil {
		return
	}
	entries, err := listEntries(dir, b.showHidden, b.opts.Filter)
	if err != nil {
		b.log.Error().Err(err).Str("dir", dir.Path()).Msg("could not list folder")
		fyne.LogError("could not list "+dir.Path(), err)
		return
	}

	changed := b.dir == nil || b.dir.String() != dir.String()
	b.dir = dir
	b.entries = entries
	b.crumbs.update(dir)
	if changed && b.search.Text != "" {
		b.search.SetText("") // populates through OnChanged
	} else {
		b.populate()
	}
	b.log.Debug().Str("dir", dir.Path()).Int("entries", len(entries)).Msg("location changed")
}

// populate refills the grid with the listed entries matching the search.
func (b *Browser) populate() {
	b.grid.Clear()
	for _, e := range matchEntries(b.entries, b.search.Text) {
		kind := gallery.KindFile
		if e.dir {
			kind = gallery.KindDirectory
		}
		b.grid.Append(e.path, kind, nil)
	}
	b.updateStatus(0)
}

// Close detaches the keyboard hooks and stops background work.
func (b *Browser) Close() {
	b.Detach()
	b.grid.Close()
}

func (b *Browser) activate(info gallery.ItemInfo) {
	if info.Kind == gallery.KindDirectory {
		if l, err := storage.ListerForURI(storage.NewFileURI(info.Path)); err == nil {
			b.SetLocation(l)
		}
		return
	}
	if b.opts.OnOpen != nil {
		b.opts.OnOpen(info.Path)
	}
}

func (b *Browser) setShowHidden(show bool) {
	b.showHidden = show
	fyne.CurrentApp().Preferences().SetBool(showHiddenKey, show)
	b.SetLocation(b.dir)
}

func (b *Browser) updateStatus(selected int) {
	n := b.grid.View().Len()
	text := fmt.Sprintf("%d items", n)
	if selected > 0 {
		text = fmt.Sprintf("%d of %d selected", selected, n)
	}
	b.status.SetText(text)
}

func (b *Browser) updateZoomButtons() {
	if b.zoomIn == nil || b.zoomOut == nil {
		return
	}
	level := b.grid.ZoomLevel()
	if level <= 0 {
		b.zoomOut.Disable()
	} else {
		b.zoomOut.Enable()
	}
	if level >= len(zoomLevels)-1 {
		b.zoomIn.Disable()
	} else {
		b.zoomIn.Enable()
	}
}

func (b *Browser) makeUI() fyne.CanvasObject {
	b.zoomOut = widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() {
		b.grid.adjustZoom(-1)
	})
	b.zoomIn = widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() {
		b.grid.adjustZoom(1)
	})
	b.updateZoomButtons()

	hidden := widget.NewCheck("Show Hidden", b.setShowHidden)
	hidden.Checked = b.showHidden

	reload := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		b.SetLocation(b.dir)
	})

	toolbar := container.NewBorder(nil, nil, nil,
		container.NewHBox(container.NewGridWrap(fyne.NewSize(220, 36), b.search), hidden, reload, b.zoomOut, b.zoomIn),
		container.NewPadded(b.crumbs.scroll))

	split := container.NewHSplit(
		container.NewPadded(b.side.list),
		container.NewBorder(toolbar, b.status, nil, nil, b.grid),
	)
	split.SetOffset(0.2)
	return split
}

type entry struct {
	path string
	dir  bool
}

// listEntries returns the visible children of dir, folders first, each
// group sorted by name without regard to case.
func listEntries(dir fyne.ListableURI, showHidden bool, filter func(string) bool) ([]entry, error) {
	uris, err := dir.List()
	if err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(uris))
	for _, u := range uris {
		if !showHidden && isHidden(u) {
			continue
		}
		isDir, _ := storage.CanList(u)
		if !isDir && filter != nil && !filter(u.Path()) {
			continue
		}
		out = append(out, entry{path: u.Path(), dir: isDir})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].dir != out[j].dir {
			return out[i].dir
		}
		return strings.ToLower(filepath.Base(out[i].path)) < strings.ToLower(filepath.Base(out[j].path))
	})
	return out, nil
}

func isHidden(u fyne.URI) bool {
	if u.Scheme() != "file" {
		return false
	}
	name := filepath.Base(u.Path())
	return name == "" || name[0] == '.'
}

// StartingDir returns the home folder, or the filesystem root.
func StartingDir() fyne.ListableURI {
	if home, err := os.UserHomeDir(); err == nil {
		if l, err := storage.ListerForURI(storage.NewFileURI(home)); err == nil {
			return l
		}
	}
	l, _ := storage.ListerForURI(storage.NewFileURI("/"))
	return l
}
