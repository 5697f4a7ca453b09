// Package transform maps pixels through a pinhole camera model with lens distortion and
// undistorts images with it.
//
// A pixel is normalized by the intrinsics, distorted in normalized coordinates and projected
// back to pixels. Undistortion pulls: every output pixel reads the source at its distorted
// position.
package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
	ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")
	// ErrInvalidModelParameters is wrapped by every error describing unusable camera parameters.
	ErrInvalidModelParameters = errors.New("invalid camera model parameters")
)

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

func newInvalidParameterError(name string, value float64) error {
	return errors.Wrapf(ErrInvalidModelParameters, "%s = %v", name, value)
}

// CameraParameters is the full parameter set of a calibrated camera, exchanged as a single value:
// focal lengths and principal point in pixels, radial (k1, k2, k3) and tangential (p1, p2)
// distortion coefficients, and axis skew.
type CameraParameters struct {
	Fx   float64 `json:"fx"`
	Fy   float64 `json:"fy"`
	Cx   float64 `json:"cx"`
	Cy   float64 `json:"cy"`
	K1   float64 `json:"k1"`
	K2   float64 `json:"k2"`
	K3   float64 `json:"k3"`
	P1   float64 `json:"p1"`
	P2   float64 `json:"p2"`
	Skew float64 `json:"skew"`
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D
// scene to the 2D plane. Width and Height are optional; when set, images handed to the camera
// model must have that size.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
	Skew   float64 `json:"skew"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs. Focal lengths
// are divisors and must be non-zero; every value must be finite.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	var errs error
	if params.Width < 0 || params.Height < 0 {
		errs = multierr.Append(errs, errors.Wrapf(ErrInvalidModelParameters,
			"invalid size (%d, %d)", params.Width, params.Height))
	}
	if params.Fx == 0 || !finite(params.Fx) {
		errs = multierr.Append(errs, newInvalidParameterError("focal length fx", params.Fx))
	}
	if params.Fy == 0 || !finite(params.Fy) {
		errs = multierr.Append(errs, newInvalidParameterError("focal length fy", params.Fy))
	}
	if !finite(params.Ppx) {
		errs = multierr.Append(errs, newInvalidParameterError("principal point ppx", params.Ppx))
	}
	if !finite(params.Ppy) {
		errs = multierr.Append(errs, newInvalidParameterError("principal point ppy", params.Ppy))
	}
	if !finite(params.Skew) {
		errs = multierr.Append(errs, newInvalidParameterError("skew", params.Skew))
	}
	return errs
}

// PinholeCameraModel is the model of a pinhole camera with lens distortion. It is immutable once
// constructed; use WithParameters to derive a model with new parameters.
type PinholeCameraModel struct {
	intrinsics PinholeCameraIntrinsics
	distortion Distorter
}

// NewPinholeCameraModel builds a Brown-Conrady camera model from the ten calibration parameters.
// It fails if fx or fy is zero or if any parameter is not finite.
func NewPinholeCameraModel(params CameraParameters) (*PinholeCameraModel, error) {
	intrinsics := PinholeCameraIntrinsics{
		Fx:   params.Fx,
		Fy:   params.Fy,
		Ppx:  params.Cx,
		Ppy:  params.Cy,
		Skew: params.Skew,
	}
	distortion := BrownConrady{
		RadialK1:     params.K1,
		RadialK2:     params.K2,
		RadialK3:     params.K3,
		TangentialP1: params.P1,
		TangentialP2: params.P2,
	}
	return NewPinholeCameraModelWithDistortion(intrinsics, distortion)
}

// NewPinholeCameraModelWithDistortion builds a camera model from intrinsics and any distortion
// model. A nil Distorter means an ideal lens.
func NewPinholeCameraModelWithDistortion(
	intrinsics PinholeCameraIntrinsics,
	distortion Distorter,
) (*PinholeCameraModel, error) {
	if distortion == nil {
		distortion = NoDistortion{}
	}
	err := multierr.Combine(intrinsics.CheckValid(), distortion.CheckValid())
	if err != nil {
		return nil, err
	}
	return &PinholeCameraModel{intrinsics: intrinsics, distortion: distortion}, nil
}

// WithParameters returns a new Brown-Conrady model holding exactly params. The image size of the
// receiver is carried over; nothing else is.
func (params *PinholeCameraModel) WithParameters(p CameraParameters) (*PinholeCameraModel, error) {
	m, err := NewPinholeCameraModel(p)
	if err != nil {
		return nil, err
	}
	if params != nil {
		m.intrinsics.Width = params.intrinsics.Width
		m.intrinsics.Height = params.intrinsics.Height
	}
	return m, nil
}

// WithImageSize returns a copy of the model that only accepts images of the given size. A zero
// size accepts any image.
func (params *PinholeCameraModel) WithImageSize(width, height int) (*PinholeCameraModel, error) {
	intrinsics := params.intrinsics
	intrinsics.Width, intrinsics.Height = width, height
	return NewPinholeCameraModelWithDistortion(intrinsics, params.distortion)
}

// CheckValid checks the intrinsics and distortion of the model.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if params.distortion == nil {
		return params.intrinsics.CheckValid()
	}
	return multierr.Combine(params.intrinsics.CheckValid(), params.distortion.CheckValid())
}

// Intrinsics returns a copy of the model's intrinsics.
func (params *PinholeCameraModel) Intrinsics() PinholeCameraIntrinsics {
	return params.intrinsics
}

// Distortion returns the model's distortion.
func (params *PinholeCameraModel) Distortion() Distorter {
	if params.distortion == nil {
		return NoDistortion{}
	}
	return params.distortion
}

// Parameters returns the ten calibration parameters of the model. Distortion models that do not
// use a coefficient report it as zero.
func (params *PinholeCameraModel) Parameters() CameraParameters {
	var d [5]float64
	copy(d[:], params.Distortion().Parameters())
	return CameraParameters{
		Fx:   params.intrinsics.Fx,
		Fy:   params.intrinsics.Fy,
		Cx:   params.intrinsics.Ppx,
		Cy:   params.intrinsics.Ppy,
		K1:   d[0],
		K2:   d[1],
		K3:   d[2],
		P1:   d[3],
		P2:   d[4],
		Skew: params.intrinsics.Skew,
	}
}

// PixelToNormalized converts a pixel coordinate to the ideal normalized camera plane. It is the
// exact inverse of NormalizedToPixel.
func (params *PinholeCameraModel) PixelToNormalized(px, py float64) (float64, float64) {
	yn := (py - params.intrinsics.Ppy) / params.intrinsics.Fy
	xn := (px-params.intrinsics.Ppx)/params.intrinsics.Fx - params.intrinsics.Skew*yn
	return xn, yn
}

// DistortionModel returns where the ideal normalized point (xn, yn) appears under the lens
// distortion of the model.
func (params *PinholeCameraModel) DistortionModel(xn, yn float64) (float64, float64) {
	return params.Distortion().Transform(xn, yn)
}

// NormalizedToPixel converts a normalized camera plane coordinate to a pixel coordinate.
func (params *PinholeCameraModel) NormalizedToPixel(xn, yn float64) (float64, float64) {
	px := params.intrinsics.Fx*(xn+params.intrinsics.Skew*yn) + params.intrinsics.Ppx
	py := params.intrinsics.Fy*yn + params.intrinsics.Ppy
	return px, py
}

// DistortionMap is a function that transforms the undistorted input pixels (u,v) to the distorted
// pixels (x,y) according to the model.
func (params *PinholeCameraModel) DistortionMap() func(u, v float64) (float64, float64) {
	return func(u, v float64) (float64, float64) {
		x, y := params.PixelToNormalized(u, v)
		x, y = params.DistortionModel(x, y)
		return params.NormalizedToPixel(x, y)
	}
}

// UndistortPixel maps a pixel of a distorted image to its position in the undistorted image.
func (params *PinholeCameraModel) UndistortPixel(px, py float64) (float64, float64, error) {
	xd, yd := params.PixelToNormalized(px, py)
	xu, yu, err := UndistortPoint(params.Distortion(), xd, yd)
	if err != nil {
		return 0, 0, err
	}
	u, v := params.NormalizedToPixel(xu, yu)
	return u, v, nil
}

// UndistortPoints applies UndistortPixel to every point, failing on the first point that cannot
// be inverted.
func (params *PinholeCameraModel) UndistortPoints(pts []r2.Point) ([]r2.Point, error) {
	out := make([]r2.Point, 0, len(pts))
	for i, pt := range pts {
		u, v, err := params.UndistortPixel(pt.X, pt.Y)
		if err != nil {
			return nil, errors.Wrapf(err, "point %d", i)
		}
		out = append(out, r2.Point{X: u, Y: v})
	}
	return out, nil
}

// String implements fmt.Stringer.
func (params *PinholeCameraModel) String() string {
	return fmt.Sprintf("%s%+v", params.Distortion().ModelType(), params.Parameters())
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
