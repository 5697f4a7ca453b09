package transform

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// DistortionStats summarizes how far an undistortion pulls pixels from their own position.
type DistortionStats struct {
	MeanDisplacement    float64
	MaxDisplacement     float64
	P95Displacement     float64
	OutOfBoundsFraction float64
}

// MeasureDistortion computes displacement statistics, in pixels, of the model's DistortionMap over
// a width x height image. Displacements are only gathered for pixels whose source is in bounds.
func MeasureDistortion(model *PinholeCameraModel, width, height int) (*DistortionStats, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size (%d, %d)", width, height)
	}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	um := NewUndistortionMap(model, width, height)

	displacements := make(stats.Float64Data, 0, width*height)
	outside := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !um.InBounds(x, y) {
				outside++
				continue
			}
			src := um.At(x, y)
			displacements = append(displacements, math.Hypot(src.X-float64(x), src.Y-float64(y)))
		}
	}

	out := &DistortionStats{OutOfBoundsFraction: float64(outside) / float64(width*height)}
	if len(displacements) == 0 {
		return out, nil
	}
	var err error
	if out.MeanDisplacement, err = displacements.Mean(); err != nil {
		return nil, err
	}
	if out.MaxDisplacement, err = displacements.Max(); err != nil {
		return nil, err
	}
	if out.P95Displacement, err = displacements.Percentile(95); err != nil {
		return nil, err
	}
	return out, nil
}
