package rimage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestIn(t *testing.T) {
	test.That(t, In(r2.Point{X: 0, Y: 0}, 3, 2), test.ShouldBeTrue)
	test.That(t, In(r2.Point{X: 2.999, Y: 1.5}, 3, 2), test.ShouldBeTrue)
	test.That(t, In(r2.Point{X: 3, Y: 0}, 3, 2), test.ShouldBeFalse)
	test.That(t, In(r2.Point{X: 0, Y: 2}, 3, 2), test.ShouldBeFalse)
	test.That(t, In(r2.Point{X: -0.0001, Y: 0}, 3, 2), test.ShouldBeFalse)
	test.That(t, In(r2.Point{X: math.NaN(), Y: 0}, 3, 2), test.ShouldBeFalse)
	test.That(t, In(r2.Point{X: math.Inf(1), Y: 0}, 3, 2), test.ShouldBeFalse)
	test.That(t, In(r2.Point{X: math.Inf(-1), Y: 0}, 3, 2), test.ShouldBeFalse)
}

func TestNearestNeighborGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(10 * (i + 1))
	}

	c, ok := NearestNeighborGray(r2.Point{X: 1.9, Y: 0.9}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c, test.ShouldResemble, color.Gray{Y: 20})

	c, ok = NearestNeighborGray(r2.Point{X: 2.5, Y: 1.2}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c, test.ShouldResemble, color.Gray{Y: 60})

	_, ok = NearestNeighborGray(r2.Point{X: 3, Y: 0}, img)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNearestNeighborGrayOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 12, 22))
	img.SetGray(11, 21, color.Gray{Y: 99})

	c, ok := NearestNeighborGray(r2.Point{X: 1.2, Y: 1.7}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.Y, test.ShouldEqual, 99)
}

func TestBilinearGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 100})
	img.SetGray(0, 1, color.Gray{Y: 100})
	img.SetGray(1, 1, color.Gray{Y: 200})

	c, ok := BilinearGray(r2.Point{X: 0.5, Y: 0}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.Y, test.ShouldEqual, 50)

	c, _ = BilinearGray(r2.Point{X: 0.5, Y: 0.5}, img)
	test.That(t, c.Y, test.ShouldEqual, 100)

	// integer coordinates reproduce the samples exactly
	c, _ = BilinearGray(r2.Point{X: 1, Y: 1}, img)
	test.That(t, c.Y, test.ShouldEqual, 200)

	// the last column clamps to itself
	c, _ = BilinearGray(r2.Point{X: 1.5, Y: 0}, img)
	test.That(t, c.Y, test.ShouldEqual, 100)

	_, ok = BilinearGray(r2.Point{X: 0, Y: -0.5}, img)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNRGBASampling(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 200, B: 10, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 100, G: 0, B: 30, A: 255})

	c, ok := NearestNeighborNRGBA(r2.Point{X: 1.7, Y: 0.2}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c, test.ShouldResemble, color.NRGBA{R: 100, G: 0, B: 30, A: 255})

	c, ok = BilinearNRGBA(r2.Point{X: 0.5, Y: 0}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c, test.ShouldResemble, color.NRGBA{R: 50, G: 100, B: 20, A: 255})

	_, ok = NearestNeighborNRGBA(r2.Point{X: 2, Y: 0}, img)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = BilinearNRGBA(r2.Point{X: -1, Y: 0}, img)
	test.That(t, ok, test.ShouldBeFalse)
}
