// Package window resolves the top-level window under a screen point.
package window

import (
	"errors"
	"image"
	"log"

	"upscreen/src/screenshot"
)

// ErrUnsupported is returned by NewDesktop on platforms without window lookup.
var ErrUnsupported = errors.New("window lookup not supported on this platform")

// Handle identifies a native window. Zero means no window.
type Handle uintptr

// Desktop is the platform capability surface used by Resolve.
type Desktop interface {
	WindowFromPoint(p image.Point) Handle
	Parent(h Handle) Handle
	IsChild(parent, child Handle) bool
	WindowRect(h Handle) (screenshot.Region, bool)
	WindowText(h Handle) string
	// PrimaryScreen returns the full bounds of the primary monitor.
	PrimaryScreen() screenshot.Region
	// PrimaryWorkingArea returns the primary monitor minus the taskbar.
	PrimaryWorkingArea() screenshot.Region
}

// Resolve finds the top-level window under p and returns its rectangle,
// corrected for a maximized window reported with taskbar height and for
// negative coordinates. The result never has a negative X or Y. It is not
// clamped to the right/bottom edges of the virtual screen.
func Resolve(d Desktop, p image.Point) (screenshot.Region, bool) {
	h := d.WindowFromPoint(p)
	if h == 0 {
		return screenshot.Region{}, false
	}
	log.Printf("window: capturing %q", d.WindowText(h))

	for {
		parent := d.Parent(h)
		if parent == 0 || !d.IsChild(parent, h) {
			break
		}
		h = parent
	}

	r, ok := d.WindowRect(h)
	if !ok {
		return screenshot.Region{}, false
	}
	return correct(r, d.PrimaryScreen(), d.PrimaryWorkingArea()), true
}

func correct(r, screen, working screenshot.Region) screenshot.Region {
	taskbar := screen.Height - working.Height

	// Fragile: any offset in the reported coordinates disables this.
	if r.Height+r.Y+taskbar+r.Y == screen.Height {
		r.Y = 0
		r.Height = working.Height
	}

	if r.X < 0 {
		r.Width += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.Height += r.Y
		r.Y = 0
	}
	return r
}
