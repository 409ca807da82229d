//go:build !flatpak || windows || android || ios || wasm || js

package browser

import (
	"fyne.io/fyne/v2"
	fynedialog "fyne.io/fyne/v2/dialog"
)

// ChooseFolder shows the fyne folder dialog. cb runs on the fyne thread
// with a nil folder when the user cancels.
func ChooseFolder(parent fyne.Window, start fyne.ListableURI, cb func(fyne.ListableURI, error)) {
	d := fynedialog.NewFolderOpen(cb, parent)
	if start != nil {
		d.SetLocation(start)
	}
	d.Show()
}
