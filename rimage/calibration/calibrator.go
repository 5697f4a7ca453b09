package calibration

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lensmodel/logging"
	"go.viam.com/lensmodel/rimage/transform"
)

// ErrPatternNotFound is returned by a Detector when an image does not show the checkerboard.
var ErrPatternNotFound = errors.New("checkerboard pattern not found")

// Detection is the checkerboard found in one image.
type Detection struct {
	// Corners are the refined inner corner positions in pixels, in the order of ObjectPoints.
	Corners   []r2.Point
	ImageSize image.Point
}

// Detector finds the inner corners of a checkerboard in an image file.
type Detector interface {
	FindCorners(ctx context.Context, path string, pattern CheckerboardPattern) (*Detection, error)
}

// Solution is a camera calibration in the OpenCV layout.
type Solution struct {
	CameraMatrix *mat.Dense
	// DistCoeffs is ordered (k1, k2, p1, p2[, k3[, ...]]).
	DistCoeffs []float64
	RMS        float64
}

// Solver estimates the camera matrix and distortion coefficients from corresponding object and
// image points of several views.
type Solver interface {
	Solve(ctx context.Context, objectPoints [][]r3.Vector, imagePoints [][]r2.Point, imageSize image.Point) (*Solution, error)
}

// Calibrator is a Provider that runs a Detector over every calibration image and hands the
// detected views to a Solver.
type Calibrator struct {
	detector Detector
	solver   Solver
	logger   logging.Logger
}

// NewCalibrator returns a Calibrator. A nil logger logs to the "calibration" sublogger of
// logging.Global.
func NewCalibrator(detector Detector, solver Solver, logger logging.Logger) (*Calibrator, error) {
	if detector == nil {
		return nil, errors.New("calibration needs a corner detector")
	}
	if solver == nil {
		return nil, errors.New("calibration needs a solver")
	}
	if logger == nil {
		logger = logging.Global().Sublogger("calibration")
	}
	return &Calibrator{detector: detector, solver: solver, logger: logger}, nil
}

// ImagePaths expands source into a sorted list of files. A directory matches every file in it;
// anything else is treated as a glob pattern.
func ImagePaths(source string) ([]string, error) {
	pattern := source
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		pattern = filepath.Join(source, "*")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad calibration image pattern %q", source)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no calibration images match %q", source)
	}
	sort.Strings(paths)
	return paths, nil
}

// Calibrate detects the pattern in every image of source and solves for the camera parameters.
// Images without the pattern, with the wrong number of corners, or of a different size than the
// first usable image are skipped with a warning. It fails only when no image is usable.
func (c *Calibrator) Calibrate(ctx context.Context, source string, pattern CheckerboardPattern) (*Result, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	paths, err := ImagePaths(source)
	if err != nil {
		return nil, err
	}

	objectPoints := pattern.ObjectPoints()
	res := &Result{}
	var views [][]r2.Point
	skip := func(path string, reason error) {
		c.logger.Warnw("skipping calibration image", "image", path, "error", reason)
		res.Skipped = append(res.Skipped, path)
		res.SkipReasons = multierr.Append(res.SkipReasons, errors.Wrap(reason, path))
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		det, err := c.detector.FindCorners(ctx, path, pattern)
		switch {
		case err != nil:
			skip(path, err)
			continue
		case det == nil:
			skip(path, ErrPatternNotFound)
			continue
		case len(det.Corners) != pattern.Corners():
			skip(path, errors.Errorf("found %d corners, expected %d", len(det.Corners), pattern.Corners()))
			continue
		case len(views) > 0 && det.ImageSize != res.ImageSize:
			skip(path, errors.Errorf("image size %v differs from %v", det.ImageSize, res.ImageSize))
			continue
		}
		if len(views) == 0 {
			res.ImageSize = det.ImageSize
		}
		views = append(views, det.Corners)
		res.Used = append(res.Used, path)
		c.logger.Debugw("found checkerboard", "image", path, "corners", len(det.Corners))
	}
	if len(views) == 0 {
		return nil, multierr.Combine(ErrNoPatternFound, res.SkipReasons)
	}

	allObjectPoints := make([][]r3.Vector, len(views))
	for i := range allObjectPoints {
		allObjectPoints[i] = objectPoints
	}
	sol, err := c.solver.Solve(ctx, allObjectPoints, views, res.ImageSize)
	if err != nil {
		return nil, errors.Wrap(err, "camera calibration failed")
	}
	if sol == nil || sol.CameraMatrix == nil {
		return nil, errors.New("camera calibration returned no camera matrix")
	}
	res.Parameters, err = transform.ParametersFromMatrices(sol.CameraMatrix, sol.DistCoeffs)
	if err != nil {
		return nil, err
	}
	res.RMS = sol.RMS
	c.logger.Infow("calibrated camera",
		"parameters", res.Parameters,
		"rms", res.RMS,
		"used", len(res.Used),
		"skipped", len(res.Skipped))
	return res, nil
}
