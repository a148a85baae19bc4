//go:build !windows

package screenshot

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"
)

type displayCapturer struct{}

func newPlatformCapturer() Capturer { return displayCapturer{} }

func (displayCapturer) bounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, &CaptureError{Op: "enumerate displays", Err: errors.New("no active displays found")}
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

func (c displayCapturer) VirtualRect() (image.Rectangle, error) {
	return c.bounds()
}

func (c displayCapturer) CaptureVirtualScreen() (*image.RGBA, error) {
	union, err := c.bounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return nil, &CaptureError{Op: "capture rect", Err: err}
	}
	return normalize(img), nil
}
