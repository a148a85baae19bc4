// Package imaging holds the narrow image operations the capture flow needs:
// cropping to screen-clamped rectangles and reading/writing image files.
package imaging

import (
	"errors"
	"image"
	"image/draw"

	"upscreen/src/screenshot"
)

// ErrEmptyRegion means the clamped rectangle has no area.
var ErrEmptyRegion = errors.New("crop region has no area")

// Clamp shrinks rect so it does not pass the right/bottom edge of the
// virtual screen. The origin is never moved.
func Clamp(rect screenshot.Region, virtual image.Point) screenshot.Region {
	if rect.X+rect.Width > virtual.X {
		rect.Width = virtual.X - rect.X
	}
	if rect.Y+rect.Height > virtual.Y {
		rect.Height = virtual.Y - rect.Y
	}
	return rect
}

// Crop clamps rect to the virtual screen and returns a copy of that part of
// img in the same pixel format. img is not modified.
func Crop(img image.Image, rect screenshot.Region, virtual image.Point) (image.Image, error) {
	rect = Clamp(rect, virtual)
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}
	r := rect.Rect().Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRegion
	}
	return clone(img, r), nil
}

// Extract returns an image of exactly area's size filled from img starting
// at area's origin. Pixels past the edge of img stay zero.
func Extract(img image.Image, area screenshot.Region) (image.Image, error) {
	if area.Empty() {
		return nil, ErrEmptyRegion
	}
	dst := image.NewRGBA(image.Rect(0, 0, area.Width, area.Height))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min.Add(image.Pt(area.X, area.Y)), draw.Src)
	return dst, nil
}

func clone(img image.Image, r image.Rectangle) image.Image {
	out := image.Rect(0, 0, r.Dx(), r.Dy())
	var dst draw.Image
	switch src := img.(type) {
	case *image.NRGBA:
		dst = image.NewNRGBA(out)
	case *image.Gray:
		dst = image.NewGray(out)
	case *image.RGBA64:
		dst = image.NewRGBA64(out)
	case *image.NRGBA64:
		dst = image.NewNRGBA64(out)
	case *image.Paletted:
		dst = image.NewPaletted(out, src.Palette)
	default:
		dst = image.NewRGBA(out)
	}
	draw.Draw(dst, out, img, r.Min, draw.Src)
	return dst
}
