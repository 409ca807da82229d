package browser

import (
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

var zoomLevels = []float32{
	0.5,
	0.75,
	1.0,
	1.25,
	1.5,
	2.0,
}

const defaultZoomLevelIndex = 2 // 1.0

func clampZoomLevelIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(zoomLevels) {
		return len(zoomLevels) - 1
	}
	return i
}

// zoomedRowHeight scales the base row height by a zoom level.
func zoomedRowHeight(base, level int) int {
	h := int(math.Round(float64(float32(base) * zoomLevels[clampZoomLevelIndex(level)])))
	if h < 1 {
		return 1
	}
	return h
}

func isZoomModifierActive() bool {
	d, ok := fyne.CurrentApp().Driver().(desktop.Driver)
	if !ok {
		return false
	}

	mods := d.CurrentKeyModifiers()
	if mods&fyne.KeyModifierControl != 0 {
		return true
	}
	return mods&fyne.KeyModifierShortcutDefault != 0
}

// zoomScrollOverlay turns Ctrl+wheel into zoom steps. It is only visible,
// and so only catches scroll events, while the modifier is held.
type zoomScrollOverlay struct {
	widget.BaseWidget
	onStep func(steps int)
	accDY  float32
}

func newZoomScrollOverlay(onStep func(steps int)) *zoomScrollOverlay {
	z := &zoomScrollOverlay{onStep: onStep}
	z.ExtendBaseWidget(z)
	return z
}

func (z *zoomScrollOverlay) Visible() bool {
	if !z.BaseWidget.Visible() {
		return false
	}
	return isZoomModifierActive()
}

func (z *zoomScrollOverlay) Scrolled(e *fyne.ScrollEvent) {
	if z.onStep == nil {
		return
	}
	if math.IsNaN(float64(e.Scrolled.DY)) || math.IsInf(float64(e.Scrolled.DY), 0) {
		return
	}
	if steps := z.accumulate(e.Scrolled.DY); steps != 0 {
		z.onStep(steps)
	}
}

// accumulate adds a wheel delta and returns whole notches. Touchpads send
// many small deltas.
func (z *zoomScrollOverlay) accumulate(dy float32) int {
	const notch = float32(40)

	z.accDY += dy
	steps := 0
	for z.accDY >= notch {
		steps++
		z.accDY -= notch
	}
	for z.accDY <= -notch {
		steps--
		z.accDY += notch
	}
	return steps
}

func (z *zoomScrollOverlay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(&fyne.Container{})
}

var _ fyne.Scrollable = (*zoomScrollOverlay)(nil)
