package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/FyshOS/fancyfs"
)

// sidebar lists the home folder, the well known picture folders and the
// filesystem roots.
type sidebar struct {
	nav    Navigator
	list   *widget.List
	places []place
}

func newSidebar(nav Navigator) *sidebar {
	s := &sidebar{nav: nav}
	s.places = append(loadFavorites(), s.getPlaces()...)

	s.list = widget.NewList(
		func() int { return len(s.places) },
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewIcon(theme.FolderIcon()), widget.NewLabel("Template"))
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id >= len(s.places) {
				return
			}
			p := s.places[id]
			box := o.(*fyne.Container)
			box.Objects[0].(*widget.Icon).SetResource(p.icon)
			box.Objects[1].(*widget.Label).SetText(p.name)
		},
	)
	s.list.OnSelected = func(id widget.ListItemID) {
		if id < len(s.places) {
			s.nav.SetLocation(s.places[id].loc)
		}
	}
	return s
}

// folderIcon prefers the fancy folder icon a folder may carry.
func folderIcon(u fyne.URI, fallback fyne.Resource) fyne.Resource {
	if details, err := fancyfs.DetailsForFolder(u); err == nil && details != nil && details.BackgroundResource != nil {
		return details.BackgroundResource
	}
	return fallback
}

func loadFavorites() []place {
	var places []place

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	homeURI := storage.NewFileURI(homeDir)
	if l, err := storage.ListerForURI(homeURI); err == nil {
		places = append(places, place{name: "Home", icon: folderIcon(homeURI, theme.HomeIcon()), loc: l})
	}

	order := []string{"Pictures", "Videos", "Desktop", "Downloads", "Documents"}
	if runtime.GOOS == "darwin" {
		order = []string{"Pictures", "Movies", "Desktop", "Downloads", "Documents"}
	}
	for _, name := range order {
		uri, err := favoriteLocation(homeURI, name)
		if err != nil {
			continue
		}
		if l, err := storage.ListerForURI(uri); err == nil {
			places = append(places, place{name: name, icon: folderIcon(uri, theme.FolderIcon()), loc: l})
		}
	}
	return places
}

func favoriteLocation(homeURI fyne.URI, name string) (fyne.URI, error) {
	if runtime.GOOS != "linux" && runtime.GOOS != "openbsd" && runtime.GOOS != "freebsd" && runtime.GOOS != "netbsd" {
		return storage.Child(homeURI, name)
	}

	const cmdName = "xdg-user-dir"
	if _, err := exec.LookPath(cmdName); err != nil {
		return storage.Child(homeURI, name)
	}
	loc, err := exec.Command(cmdName, strings.ToUpper(name)).Output()
	if err != nil {
		return storage.Child(homeURI, name)
	}

	cleanPath := filepath.Clean(strings.TrimSpace(string(loc)))
	locURI := storage.NewFileURI(cleanPath)
	// xdg-user-dir answers with home for folders that are not configured.
	if locURI.String() == homeURI.String() {
		childPath := filepath.Join(homeURI.Path(), name)
		if resolved, err := filepath.EvalSymlinks(childPath); err == nil {
			return storage.NewFileURI(resolved), nil
		}
		return storage.NewFileURI(childPath), nil
	}
	return locURI, nil
}
