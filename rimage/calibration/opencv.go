//go:build withcv

package calibration

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lensmodel/logging"
)

// Corner refinement constants.
const (
	subPixWindow    = 11    // Half size of the corner refinement search window.
	subPixMaxIter   = 50    // Maximum number of refinement iterations.
	subPixPrecision = 0.001 // Stop once a corner moves less than this many pixels.
)

// OpenCVDetector finds checkerboard corners with OpenCV and refines them to subpixel accuracy.
type OpenCVDetector struct{}

// FindCorners implements Detector.
func (OpenCVDetector) FindCorners(ctx context.Context, path string, pattern CheckerboardPattern) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer gray.Close()
	if gray.Empty() {
		return nil, errors.Errorf("cannot read image %q", path)
	}

	corners := gocv.NewMat()
	defer corners.Close()
	flags := gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage | gocv.CalibCBFastCheck
	if !gocv.FindChessboardCorners(gray, image.Pt(pattern.Cols, pattern.Rows), &corners, flags) {
		return nil, ErrPatternNotFound
	}
	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, subPixMaxIter, subPixPrecision)
	gocv.CornerSubPix(gray, &corners, image.Pt(subPixWindow, subPixWindow), image.Pt(-1, -1), criteria)

	pts := make([]r2.Point, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		pts = append(pts, r2.Point{X: float64(v[0]), Y: float64(v[1])})
	}
	return &Detection{Corners: pts, ImageSize: image.Pt(gray.Cols(), gray.Rows())}, nil
}

// OpenCVSolver runs OpenCV's camera calibration.
type OpenCVSolver struct{}

// Solve implements Solver.
func (OpenCVSolver) Solve(
	ctx context.Context,
	objectPoints [][]r3.Vector,
	imagePoints [][]r2.Point,
	imageSize image.Point,
) (*Solution, error) {
	if len(objectPoints) != len(imagePoints) {
		return nil, errors.Errorf("got %d object point views but %d image point views", len(objectPoints), len(imagePoints))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objPts := gocv.NewPoints3fVector()
	defer objPts.Close()
	imgPts := gocv.NewPoints2fVector()
	defer imgPts.Close()
	for i := range objectPoints {
		p3 := make([]gocv.Point3f, 0, len(objectPoints[i]))
		for _, p := range objectPoints[i] {
			p3 = append(p3, gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)})
		}
		v3 := gocv.NewPoint3fVectorFromPoints(p3)
		objPts.Append(v3)
		v3.Close()

		p2 := make([]gocv.Point2f, 0, len(imagePoints[i]))
		for _, p := range imagePoints[i] {
			p2 = append(p2, gocv.Point2f{X: float32(p.X), Y: float32(p.Y)})
		}
		v2 := gocv.NewPoint2fVectorFromPoints(p2)
		imgPts.Append(v2)
		v2.Close()
	}

	cameraMatrix := gocv.NewMat()
	defer cameraMatrix.Close()
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objPts, imgPts, imageSize, &cameraMatrix, &distCoeffs, &rvecs, &tvecs, 0)
	if cameraMatrix.Empty() {
		return nil, errors.New("opencv returned an empty camera matrix")
	}

	k := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k.Set(r, c, cameraMatrix.GetDoubleAt(r, c))
		}
	}
	dist := make([]float64, 0, distCoeffs.Total())
	for c := 0; c < distCoeffs.Cols(); c++ {
		dist = append(dist, distCoeffs.GetDoubleAt(0, c))
	}
	return &Solution{CameraMatrix: k, DistCoeffs: dist, RMS: rms}, nil
}

// NewOpenCVCalibrator returns a Calibrator backed by OpenCV.
func NewOpenCVCalibrator(logger logging.Logger) (*Calibrator, error) {
	return NewCalibrator(OpenCVDetector{}, OpenCVSolver{}, logger)
}
