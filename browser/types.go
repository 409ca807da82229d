// Package browser is the fyne front end of a thumbnail grid: a scrolling
// justified grid of gallery items with places, a path bar and zoom.
package browser

import (
	"fyne.io/fyne/v2"
)

// Navigator moves a browser to another folder.
type Navigator interface {
	SetLocation(dir fyne.ListableURI)
}

const (
	folderIconSize = 48
	labelHeight    = 24
	doubleTapDelay = 400 // milliseconds

	zoomLevelKey  = "xthumbgrid:zoomLevel"
	showHiddenKey = "xthumbgrid:showHidden"
)

type place struct {
	name string
	icon fyne.Resource
	loc  fyne.ListableURI
}
