//go:build !windows

package browser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
)

func (s *sidebar) getPlaces() []place {
	lister, err := storage.ListerForURI(storage.NewFileURI("/"))
	if err != nil {
		fyne.LogError("could not create lister for /", err)
		return nil
	}
	return []place{{name: "Computer", icon: theme.ComputerIcon(), loc: lister}}
}
