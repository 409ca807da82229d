//go:build flatpak && !windows && !android && !ios && !wasm && !js

package browser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"fyne.io/fyne/v2/storage"
	"github.com/rymdport/portal"
	"github.com/rymdport/portal/filechooser"
)

// ChooseFolder asks the desktop portal for a folder. cb runs on the fyne
// thread with a nil folder when the user cancels.
func ChooseFolder(parent fyne.Window, start fyne.ListableURI, cb func(fyne.ListableURI, error)) {
	options := &filechooser.OpenFileOptions{
		AcceptLabel: "Open",
		Directory:   true,
	}
	if start != nil {
		options.CurrentFolder = start.Path()
	}
	handle := windowHandleForPortal(parent)

	go func() {
		uris, err := filechooser.OpenFile(handle, "Open Folder", options)
		var dir fyne.ListableURI
		if err == nil && len(uris) > 0 {
			var uri fyne.URI
			uri, err = storage.ParseURI(uris[0])
			if err == nil {
				dir, err = storage.ListerForURI(uri)
			}
		}
		fyne.Do(func() { cb(dir, err) })
	}()
}

func windowHandleForPortal(window fyne.Window) string {
	native, ok := window.(driver.NativeWindow)
	if !ok {
		return ""
	}

	windowHandle := ""
	native.RunNative(func(context any) {
		if x11, ok := context.(driver.X11WindowContext); ok {
			windowHandle = portal.FormatX11WindowHandle(x11.WindowHandle)
		}
	})
	return windowHandle
}
