// Package rimage holds pixel sampling helpers shared by the image transforms.
package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
)

// In reports whether pt lies within [0, width) x [0, height). Coordinates are relative to the
// image origin. NaN and infinite coordinates are never in bounds.
func In(pt r2.Point, width, height int) bool {
	return pt.X >= 0 && pt.Y >= 0 && pt.X < float64(width) && pt.Y < float64(height)
}

// NearestNeighborGray returns the sample at the truncated coordinate of pt, and false if pt
// falls outside of img.
func NearestNeighborGray(pt r2.Point, img *image.Gray) (color.Gray, bool) {
	b := img.Bounds()
	if !In(pt, b.Dx(), b.Dy()) {
		return color.Gray{}, false
	}
	i := img.PixOffset(b.Min.X+int(pt.X), b.Min.Y+int(pt.Y))
	return color.Gray{Y: img.Pix[i]}, true
}

// BilinearGray interpolates the four samples around pt. Neighbours past the last row or column
// are clamped to the edge. Returns false if pt falls outside of img.
func BilinearGray(pt r2.Point, img *image.Gray) (color.Gray, bool) {
	b := img.Bounds()
	if !In(pt, b.Dx(), b.Dy()) {
		return color.Gray{}, false
	}
	x0, x1, dx := neighbours(pt.X, b.Dx())
	y0, y1, dy := neighbours(pt.Y, b.Dy())
	at := func(x, y int) float64 {
		return float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}
	v := lerp(lerp(at(x0, y0), at(x1, y0), dx), lerp(at(x0, y1), at(x1, y1), dx), dy)
	return color.Gray{Y: clampUint8(v)}, true
}

// NearestNeighborNRGBA returns all four channels at the truncated coordinate of pt, and false
// if pt falls outside of img.
func NearestNeighborNRGBA(pt r2.Point, img *image.NRGBA) (color.NRGBA, bool) {
	b := img.Bounds()
	if !In(pt, b.Dx(), b.Dy()) {
		return color.NRGBA{}, false
	}
	i := img.PixOffset(b.Min.X+int(pt.X), b.Min.Y+int(pt.Y))
	s := img.Pix[i : i+4 : i+4]
	return color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]}, true
}

// BilinearNRGBA is BilinearGray for each channel of a non-premultiplied image.
func BilinearNRGBA(pt r2.Point, img *image.NRGBA) (color.NRGBA, bool) {
	b := img.Bounds()
	if !In(pt, b.Dx(), b.Dy()) {
		return color.NRGBA{}, false
	}
	x0, x1, dx := neighbours(pt.X, b.Dx())
	y0, y1, dy := neighbours(pt.Y, b.Dy())
	var out [4]uint8
	for c := 0; c < 4; c++ {
		at := func(x, y int) float64 {
			return float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)+c])
		}
		v := lerp(lerp(at(x0, y0), at(x1, y0), dx), lerp(at(x0, y1), at(x1, y1), dx), dy)
		out[c] = clampUint8(v)
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}, true
}

// neighbours returns the two integer coordinates bracketing v and the fractional weight of the
// second. v must already be within [0, size).
func neighbours(v float64, size int) (int, int, float64) {
	lo := int(v)
	hi := lo + 1
	if hi >= size {
		hi = size - 1
	}
	return lo, hi, v - float64(lo)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clampUint8(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(v)
	}
}
