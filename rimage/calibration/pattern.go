// Package calibration supplies camera parameters to the camera model. Corner detection and the
// nonlinear solve are delegated to a Detector and a Solver so that the rest of the pipeline can be
// used and tested without a vision library.
package calibration

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// CheckerboardPattern is the number of inner corners of a checkerboard along each axis.
type CheckerboardPattern struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Validate checks that the pattern has at least two corners along each axis.
func (p CheckerboardPattern) Validate() error {
	if p.Cols < 2 || p.Rows < 2 {
		return errors.Errorf("checkerboard pattern needs at least 2x2 inner corners, got %dx%d", p.Cols, p.Rows)
	}
	return nil
}

// Corners returns the number of inner corners of the pattern.
func (p CheckerboardPattern) Corners() int {
	return p.Cols * p.Rows
}

// ObjectPoints returns the 3D positions of the inner corners on the z = 0 plane with unit grid
// spacing, in row-major order: (j, i, 0) for row i and column j.
func (p CheckerboardPattern) ObjectPoints() []r3.Vector {
	pts := make([]r3.Vector, 0, p.Corners())
	for i := 0; i < p.Rows; i++ {
		for j := 0; j < p.Cols; j++ {
			pts = append(pts, r3.Vector{X: float64(j), Y: float64(i), Z: 0})
		}
	}
	return pts
}
