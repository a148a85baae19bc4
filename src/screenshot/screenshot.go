package screenshot

import (
	"errors"
	"fmt"
	"image"
)

// ErrCaptureFailed is matched by every error returned from a Capturer.
var ErrCaptureFailed = errors.New("screen capture failed")

// Region represents a rectangle in screen coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Capturer grabs the whole virtual desktop (the union of all monitors).
type Capturer interface {
	// CaptureVirtualScreen returns a new image whose bounds start at (0,0).
	// Image pixel (0,0) is the screen point VirtualRect().Min.
	CaptureVirtualScreen() (*image.RGBA, error)
	// VirtualRect returns the virtual screen in screen coordinates. Min is
	// negative when a monitor sits left of or above the primary one.
	VirtualRect() (image.Rectangle, error)
}

// ToImage translates a region in screen coordinates into the coordinates of
// an image captured from the virtual screen at origin.
func (r Region) ToImage(origin image.Point) Region {
	r.X -= origin.X
	r.Y -= origin.Y
	return r
}

// CaptureError carries the failing platform step.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrCaptureFailed, e.Op)
	}
	return fmt.Sprintf("%v: %s: %v", ErrCaptureFailed, e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

func (e *CaptureError) Is(target error) bool { return target == ErrCaptureFailed }

// New returns the platform capturer.
func New() Capturer {
	return newPlatformCapturer()
}

// normalize moves the image bounds to a (0,0) origin without copying pixels.
func normalize(img *image.RGBA) *image.RGBA {
	if img == nil || img.Rect.Min == (image.Point{}) {
		return img
	}
	img.Rect = image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy())
	return img
}
