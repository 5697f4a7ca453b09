package transform

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// BrownConrady is a radial (k1, k2, k3) and tangential (p1, p2) lens distortion model.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order
// (k1, k2, k3, p1, p2). Missing trailing values are zero.
func NewBrownConrady(inp []float64) (BrownConrady, error) {
	if len(inp) > 5 {
		return BrownConrady{}, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	var p [5]float64
	copy(p[:], inp)
	bc := BrownConrady{p[0], p[1], p[2], p[3], p[4]}
	if err := bc.CheckValid(); err != nil {
		return BrownConrady{}, err
	}
	return bc, nil
}

// ModelType returns the type of distortion model.
func (bc BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// CheckValid rejects NaN and infinite coefficients. Any finite value is accepted.
func (bc BrownConrady) CheckValid() error {
	var errs error
	names := []string{"rk1", "rk2", "rk3", "tp1", "tp2"}
	for i, v := range bc.Parameters() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = multierr.Append(errs, InvalidDistortionError(fmt.Sprintf("%s = %v", names[i], v)))
		}
	}
	return errs
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc BrownConrady) Parameters() []float64 {
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts an ideal normalized point (x, y):
//
//	r² = x² + y²
//	R  = 1 + k1*r² + k2*r⁴ + k3*r⁶
//	xd = R*x + 2*p1*x*y + p2*(R*2*x²)
//	yd = R*y + p1*(R*2*y²) + 2*p2*x*y
//
// The p2 term of xd and the p1 term of yd carry the radial factor R.
func (bc BrownConrady) Transform(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	radial := 1 + bc.RadialK1*r2 + bc.RadialK2*r2*r2 + bc.RadialK3*r2*r2*r2

	xd := radial*x + 2*bc.TangentialP1*x*y + bc.TangentialP2*(radial*2*x*x)
	yd := radial*y + bc.TangentialP1*(radial*2*y*y) + 2*bc.TangentialP2*x*y
	return xd, yd
}

// TextbookBrownConrady is the Brown-Conrady model with the tangential terms
// 2*p1*x*y + p2*(r² + 2*x²) and p1*(r² + 2*y²) + 2*p2*x*y, as used by OpenCV.
type TextbookBrownConrady BrownConrady

// ModelType returns the type of distortion model.
func (tbc TextbookBrownConrady) ModelType() DistortionType {
	return TextbookBrownConradyDistortionType
}

// CheckValid rejects NaN and infinite coefficients.
func (tbc TextbookBrownConrady) CheckValid() error {
	return BrownConrady(tbc).CheckValid()
}

// Parameters returns (k1, k2, k3, p1, p2).
func (tbc TextbookBrownConrady) Parameters() []float64 {
	return BrownConrady(tbc).Parameters()
}

// Transform distorts an ideal normalized point (x, y).
func (tbc TextbookBrownConrady) Transform(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	radial := 1 + tbc.RadialK1*r2 + tbc.RadialK2*r2*r2 + tbc.RadialK3*r2*r2*r2

	xd := radial*x + 2*tbc.TangentialP1*x*y + tbc.TangentialP2*(r2+2*x*x)
	yd := radial*y + tbc.TangentialP1*(r2+2*y*y) + 2*tbc.TangentialP2*x*y
	return xd, yd
}
