package calibration

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/lensmodel/rimage/transform"
)

// ErrNoPatternFound is returned when none of the calibration images contain the checkerboard.
var ErrNoPatternFound = errors.New("no checkerboard pattern found in any calibration image")

// Provider supplies the ten camera parameters for the images matched by source, which is either
// a directory or a glob pattern.
type Provider interface {
	Calibrate(ctx context.Context, source string, pattern CheckerboardPattern) (*Result, error)
}

// Result is the outcome of a calibration run.
type Result struct {
	Parameters transform.CameraParameters
	// RMS is the root mean square reprojection error in pixels, when the provider reports one.
	RMS       float64
	ImageSize image.Point
	Used      []string
	Skipped   []string
	// SkipReasons combines the reason every skipped image was left out.
	SkipReasons error
}

// Model builds a camera model from the calibrated parameters, sized to the calibration images.
func (r *Result) Model() (*transform.PinholeCameraModel, error) {
	model, err := transform.NewPinholeCameraModel(r.Parameters)
	if err != nil {
		return nil, err
	}
	return model.WithImageSize(r.ImageSize.X, r.ImageSize.Y)
}

// StaticProvider returns fixed parameters regardless of the images, e.g. ones loaded from a
// previous calibration.
type StaticProvider struct {
	Parameters transform.CameraParameters
	ImageSize  image.Point
}

// NewStaticProviderFromJSONFile loads the parameters of a model config file.
func NewStaticProviderFromJSONFile(path string) (*StaticProvider, error) {
	model, err := transform.NewPinholeCameraModelFromJSONFile(path)
	if err != nil {
		return nil, err
	}
	in := model.Intrinsics()
	return &StaticProvider{Parameters: model.Parameters(), ImageSize: image.Pt(in.Width, in.Height)}, nil
}

// Calibrate returns the fixed parameters.
func (sp *StaticProvider) Calibrate(ctx context.Context, source string, pattern CheckerboardPattern) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Parameters: sp.Parameters, ImageSize: sp.ImageSize}, nil
}
