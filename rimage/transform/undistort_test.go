package transform

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"

	"go.viam.com/lensmodel/logging"
)

func patternGray(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 251)})
		}
	}
	return img
}

func uniformGray(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestUndistortIdentityModel(t *testing.T) {
	model := identityModel(t)
	src := patternGray(17, 11)

	dst, err := model.UndistortImage(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.Bounds(), test.ShouldResemble, src.Bounds())
	test.That(t, dst.Pix, test.ShouldResemble, src.Pix)
}

func TestUndistortK1CornersPullOutOfFrame(t *testing.T) {
	model, err := NewPinholeCameraModel(CameraParameters{Fx: 100, Fy: 100, Cx: 50, Cy: 50, K1: 0.0001})
	test.That(t, err, test.ShouldBeNil)

	// corner (x, y) normalizes to (+-0.5, +-0.5), r² = 0.5 and the radial factor is 1.00005,
	// so every corner lands 0.0025 px further from the center.
	distortionMap := model.DistortionMap()
	for _, tc := range []struct {
		x, y, sx, sy float64
	}{
		{0, 0, -0.0025, -0.0025},
		{100, 0, 100.0025, -0.0025},
		{0, 100, -0.0025, 100.0025},
		{100, 100, 100.0025, 100.0025},
		{50, 50, 50, 50},
	} {
		sx, sy := distortionMap(tc.x, tc.y)
		test.That(t, sx, test.ShouldAlmostEqual, tc.sx, 1e-9)
		test.That(t, sy, test.ShouldAlmostEqual, tc.sy, 1e-9)
	}

	const gray = 128
	dst, err := model.UndistortImage(uniformGray(101, 101, gray))
	test.That(t, err, test.ShouldBeNil)
	// three corners pull from negative coordinates and keep the background
	test.That(t, dst.GrayAt(0, 0).Y, test.ShouldEqual, 0)
	test.That(t, dst.GrayAt(100, 0).Y, test.ShouldEqual, 0)
	test.That(t, dst.GrayAt(0, 100).Y, test.ShouldEqual, 0)
	// (100.0025, 100.0025) is still inside [0, 101) and truncates to (100, 100)
	test.That(t, dst.GrayAt(100, 100).Y, test.ShouldEqual, gray)
	test.That(t, dst.GrayAt(50, 50).Y, test.ShouldEqual, gray)
}

func TestUndistortOutOfBoundsIsBackground(t *testing.T) {
	// strong barrel distortion pushes the corners of an 11x11 image far out of the frame
	model, err := NewPinholeCameraModel(CameraParameters{Fx: 10, Fy: 10, Cx: 5, Cy: 5, K1: 1})
	test.That(t, err, test.ShouldBeNil)
	sx, sy := model.DistortionMap()(0, 0)
	test.That(t, sx, test.ShouldAlmostEqual, -2.5)
	test.That(t, sy, test.ShouldAlmostEqual, -2.5)

	src := uniformGray(11, 11, 200)
	dst, err := model.UndistortImage(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.GrayAt(0, 0).Y, test.ShouldEqual, 0)
	test.That(t, dst.GrayAt(10, 10).Y, test.ShouldEqual, 0)
	test.That(t, dst.GrayAt(5, 5).Y, test.ShouldEqual, 200)

	u, err := NewUndistorter(model, WithBackground(color.Gray{Y: 33}))
	test.That(t, err, test.ShouldBeNil)
	dst, err = u.UndistortGray(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.GrayAt(0, 0).Y, test.ShouldEqual, 33)
	test.That(t, dst.GrayAt(5, 5).Y, test.ShouldEqual, 200)
}

func TestUndistortNearestNeighborTruncates(t *testing.T) {
	// k1 < 0 pulls pixels toward the center by a fraction of a pixel
	model, err := NewPinholeCameraModel(CameraParameters{Fx: 100, Fy: 100, Cx: 2, Cy: 0, K1: -0.5})
	test.That(t, err, test.ShouldBeNil)
	src := image.NewGray(image.Rect(0, 0, 5, 1))
	copy(src.Pix, []uint8{10, 20, 30, 40, 50})

	// x = 4: xn = 0.02, radial = 1 - 0.5*0.0004 = 0.9998, sx = 3.9996 -> 3
	sx, _ := model.DistortionMap()(4, 0)
	test.That(t, sx, test.ShouldAlmostEqual, 3.9996, 1e-9)

	dst, err := model.UndistortImage(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.Pix, test.ShouldResemble, []uint8{10, 20, 30, 30, 40})

	u, err := NewUndistorter(model, WithInterpolation(Bilinear))
	test.That(t, err, test.ShouldBeNil)
	dst, err = u.UndistortGray(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.Pix, test.ShouldResemble, []uint8{10, 20, 30, 40, 50})
}

func TestUndistortWorkersMatchSerial(t *testing.T) {
	model, err := NewPinholeCameraModel(CameraParameters{
		Fx: 40, Fy: 42, Cx: 31.5, Cy: 23.5, K1: -0.3, K2: 0.08, P1: 0.002, P2: -0.001, Skew: 0.001,
	})
	test.That(t, err, test.ShouldBeNil)
	src := patternGray(64, 48)

	serial, err := NewUndistorter(model)
	test.That(t, err, test.ShouldBeNil)
	want, err := serial.UndistortGray(src)
	test.That(t, err, test.ShouldBeNil)

	for _, workers := range []int{2, 3, 7, 100} {
		parallel, err := NewUndistorter(model, WithWorkers(workers))
		test.That(t, err, test.ShouldBeNil)
		got, err := parallel.UndistortGray(src)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Pix, test.ShouldResemble, want.Pix)
	}
}

func TestUndistortImageColor(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 60), B: 7, A: 255})
		}
	}

	u, err := NewUndistorter(identityModel(t))
	test.That(t, err, test.ShouldBeNil)
	dst, err := u.UndistortImage(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.Bounds(), test.ShouldResemble, src.Bounds())
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			test.That(t, dst.NRGBAAt(x, y), test.ShouldResemble, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 7, A: 255})
		}
	}

	model, err := NewPinholeCameraModel(CameraParameters{Fx: 3, Fy: 2, Cx: 2.5, Cy: 1.5, K1: 1})
	test.That(t, err, test.ShouldBeNil)
	red := color.NRGBA{R: 255, A: 255}
	u, err = NewUndistorter(model, WithBackground(red), WithWorkers(2))
	test.That(t, err, test.ShouldBeNil)
	dst, err = u.UndistortImage(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.NRGBAAt(0, 0), test.ShouldResemble, red)
}

func TestUndistortErrors(t *testing.T) {
	model := identityModel(t)
	u, err := NewUndistorter(model)
	test.That(t, err, test.ShouldBeNil)

	_, err = u.UndistortGray(nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = u.UndistortImage(nil)
	test.That(t, err, test.ShouldNotBeNil)

	sized, err := model.WithImageSize(8, 8)
	test.That(t, err, test.ShouldBeNil)
	_, err = sized.UndistortImage(patternGray(8, 9))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "don't match")
	_, err = sized.UndistortImage(patternGray(8, 8))
	test.That(t, err, test.ShouldBeNil)

	_, err = NewUndistorter(model, WithInterpolation("bicubic"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewUndistorter(model, WithWorkers(0))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewUndistorter(&PinholeCameraModel{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewUndistorter(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUndistortionMap(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	u, err := NewUndistorter(identityModel(t), WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)

	um := u.Map(4, 3)
	test.That(t, um.Width, test.ShouldEqual, 4)
	test.That(t, um.Height, test.ShouldEqual, 3)
	test.That(t, um.At(3, 2).X, test.ShouldEqual, 3)
	test.That(t, um.At(3, 2).Y, test.ShouldEqual, 2)
	test.That(t, um.InBounds(3, 2), test.ShouldBeTrue)

	// cached until the size changes
	test.That(t, u.Map(4, 3), test.ShouldEqual, um)
	test.That(t, logs.FilterMessage("built undistortion map").Len(), test.ShouldEqual, 1)
	test.That(t, u.Map(5, 3), test.ShouldNotEqual, um)
	test.That(t, logs.FilterMessage("built undistortion map").Len(), test.ShouldEqual, 2)

	// an unvalidated zero model maps every pixel out of bounds
	zero := NewUndistortionMap(&PinholeCameraModel{}, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			test.That(t, zero.InBounds(x, y), test.ShouldBeFalse)
		}
	}
}

func TestUndistorterDefaultLogger(t *testing.T) {
	prev := logging.Global()
	defer logging.ReplaceGlobal(prev)
	logger, logs := logging.NewObservedTestLogger(t)
	logging.ReplaceGlobal(logger)

	u, err := NewUndistorter(identityModel(t))
	test.That(t, err, test.ShouldBeNil)
	u.Map(2, 2)
	entries := logs.FilterMessage("built undistortion map").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "undistort")
}
