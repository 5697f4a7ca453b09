package transform

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// ErrUndistortNotConverged is returned when the inverse of a distortion model could not be found.
var ErrUndistortNotConverged = errors.New("inverse distortion did not converge")

const (
	inverseMaxIterations = 20
	inverseTolerance     = 1e-10
)

// UndistortPoint inverts d: given a distorted normalized point (xd, yd) it finds the ideal point
// (xu, yu) such that d.Transform(xu, yu) == (xd, yd). It works for any Distorter by running
// Newton-Raphson with a central finite-difference Jacobian, starting from the distorted point.
func UndistortPoint(d Distorter, xd, yd float64) (float64, float64, error) {
	if d == nil {
		return xd, yd, nil
	}
	if math.IsNaN(xd) || math.IsNaN(yd) || math.IsInf(xd, 0) || math.IsInf(yd, 0) {
		return xd, yd, errors.Errorf("cannot undistort non-finite point (%v, %v)", xd, yd)
	}

	forward := func(y, x []float64) {
		y[0], y[1] = d.Transform(x[0], x[1])
	}
	settings := &fd.JacobianSettings{Formula: fd.Central}

	x := []float64{xd, yd}
	jac := mat.NewDense(2, 2, nil)
	residual := mat.NewVecDense(2, nil)
	var step mat.VecDense
	for i := 0; i < inverseMaxIterations; i++ {
		px, py := d.Transform(x[0], x[1])
		residual.SetVec(0, px-xd)
		residual.SetVec(1, py-yd)
		if mat.Norm(residual, 2) < inverseTolerance {
			return x[0], x[1], nil
		}

		fd.Jacobian(jac, forward, x, settings)
		if err := step.SolveVec(jac, residual); err != nil {
			// ill-conditioned steps are still usable, singular ones are not
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				return x[0], x[1], errors.Wrap(err, "singular distortion jacobian")
			}
		}
		x[0] -= step.AtVec(0)
		x[1] -= step.AtVec(1)
	}

	px, py := d.Transform(x[0], x[1])
	if dist := math.Hypot(px-xd, py-yd); !(dist <= math.Sqrt(inverseTolerance)) {
		return x[0], x[1], errors.Wrapf(ErrUndistortNotConverged, "point (%v, %v)", xd, yd)
	}
	return x[0], x[1], nil
}
