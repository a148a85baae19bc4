//go:build windows

package window

import (
	"image"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"upscreen/src/screenshot"
)

const (
	smCXScreen     = 0
	smCYScreen     = 1
	spiGetWorkArea = 0x0030
)

var (
	user32                    = syscall.NewLazyDLL("user32.dll")
	procGetWindowTextW        = user32.NewProc("GetWindowTextW")
	procSystemParametersInfoW = user32.NewProc("SystemParametersInfoW")
)

type winDesktop struct{}

// NewDesktop returns the Win32 desktop.
func NewDesktop() (Desktop, error) { return winDesktop{}, nil }

func (winDesktop) WindowFromPoint(p image.Point) Handle {
	return Handle(win.WindowFromPoint(win.POINT{X: int32(p.X), Y: int32(p.Y)}))
}

func (winDesktop) Parent(h Handle) Handle {
	return Handle(win.GetParent(win.HWND(h)))
}

func (winDesktop) IsChild(parent, child Handle) bool {
	return win.IsChild(win.HWND(parent), win.HWND(child))
}

func (winDesktop) WindowRect(h Handle) (screenshot.Region, bool) {
	var rc win.RECT
	if !win.GetWindowRect(win.HWND(h), &rc) {
		return screenshot.Region{}, false
	}
	return rectToRegion(rc), true
}

func (winDesktop) WindowText(h Handle) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:n])
}

func (winDesktop) PrimaryScreen() screenshot.Region {
	return screenshot.Region{
		Width:  int(win.GetSystemMetrics(smCXScreen)),
		Height: int(win.GetSystemMetrics(smCYScreen)),
	}
}

func (d winDesktop) PrimaryWorkingArea() screenshot.Region {
	var rc win.RECT
	ok, _, _ := procSystemParametersInfoW.Call(spiGetWorkArea, 0, uintptr(unsafe.Pointer(&rc)), 0)
	if ok == 0 {
		return d.PrimaryScreen()
	}
	return rectToRegion(rc)
}

func rectToRegion(rc win.RECT) screenshot.Region {
	return screenshot.Region{
		X:      int(rc.Left),
		Y:      int(rc.Top),
		Width:  int(rc.Right - rc.Left),
		Height: int(rc.Bottom - rc.Top),
	}
}
