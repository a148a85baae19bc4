//go:build windows

package screenshot

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

const (
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79

	ropSrcCopy    = 0x00CC0020
	ropCaptureBlt = 0x40000000
	dibRGBColors  = 0
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	gdi32                = syscall.NewLazyDLL("gdi32.dll")
	procGetDesktopWindow = user32.NewProc("GetDesktopWindow")
	procGetWindowDC      = user32.NewProc("GetWindowDC")
	procCreateDIBSection = gdi32.NewProc("CreateDIBSection")
)

type gdiCapturer struct{}

func newPlatformCapturer() Capturer { return gdiCapturer{} }

func (gdiCapturer) virtualRect() image.Rectangle {
	x := int(win.GetSystemMetrics(smXVirtualScreen))
	y := int(win.GetSystemMetrics(smYVirtualScreen))
	w := int(win.GetSystemMetrics(smCXVirtualScreen))
	h := int(win.GetSystemMetrics(smCYVirtualScreen))
	return image.Rect(x, y, x+w, y+h)
}

func (c gdiCapturer) VirtualRect() (image.Rectangle, error) {
	r := c.virtualRect()
	if r.Empty() {
		return image.Rectangle{}, &CaptureError{Op: "virtual screen metrics"}
	}
	return r, nil
}

// CaptureVirtualScreen copies the desktop DC into a top-down 32bpp DIB.
// Every handle acquired here is released by a deferred call.
func (c gdiCapturer) CaptureVirtualScreen() (*image.RGBA, error) {
	vr := c.virtualRect()
	width, height := vr.Dx(), vr.Dy()
	if width <= 0 || height <= 0 {
		return nil, &CaptureError{Op: "virtual screen metrics"}
	}

	r, _, _ := procGetDesktopWindow.Call()
	hDesk := win.HWND(r)
	r, _, _ = procGetWindowDC.Call(uintptr(hDesk))
	hSrc := win.HDC(r)
	if hSrc == 0 {
		return nil, &CaptureError{Op: "GetWindowDC", Err: lastError()}
	}
	defer win.ReleaseDC(hDesk, hSrc)

	hDest := win.CreateCompatibleDC(hSrc)
	if hDest == 0 {
		return nil, &CaptureError{Op: "CreateCompatibleDC", Err: lastError()}
	}
	defer win.DeleteDC(hDest)

	bi := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(width),
			BiHeight:      int32(-height),
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}
	var bits unsafe.Pointer
	r, _, _ = procCreateDIBSection.Call(
		uintptr(hDest),
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
		uintptr(unsafe.Pointer(&bits)),
		0,
		0)
	hBmp := win.HBITMAP(r)
	if hBmp == 0 || bits == nil {
		return nil, &CaptureError{Op: "CreateDIBSection", Err: lastError()}
	}
	defer win.DeleteObject(win.HGDIOBJ(hBmp))

	old := win.SelectObject(hDest, win.HGDIOBJ(hBmp))
	if old == 0 {
		return nil, &CaptureError{Op: "SelectObject", Err: lastError()}
	}
	defer win.SelectObject(hDest, old)

	if !win.BitBlt(hDest, 0, 0, int32(width), int32(height), hSrc, int32(vr.Min.X), int32(vr.Min.Y), ropSrcCopy|ropCaptureBlt) {
		return nil, &CaptureError{Op: "BitBlt", Err: lastError()}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	src := unsafe.Slice((*byte)(bits), width*height*4)
	for i := 0; i < len(src); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = src[i+2], src[i+1], src[i], 255
	}
	return img, nil
}

func lastError() error {
	if code := win.GetLastError(); code != 0 {
		return fmt.Errorf("win32 error %d", code)
	}
	return nil
}
