package transform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx fx*skew ppx],
//
//	[0  fy      ppy],
//	[0  0       1]]
func (params *PinholeCameraModel) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	in := params.intrinsics
	return mat.NewDense(3, 3, []float64{
		in.Fx, in.Fx * in.Skew, in.Ppx,
		0, in.Fy, in.Ppy,
		0, 0, 1,
	})
}

// ParametersFromMatrices converts a calibration result in the OpenCV layout into CameraParameters.
// distCoeffs is ordered (k1, k2, p1, p2[, k3[, ...]]); coefficients past k3 are ignored and a
// missing k3 is zero. The skew term of the camera matrix is divided by fx so that
// GetCameraMatrix and ParametersFromMatrices round-trip.
func ParametersFromMatrices(cameraMatrix mat.Matrix, distCoeffs []float64) (CameraParameters, error) {
	if cameraMatrix == nil {
		return CameraParameters{}, NewNoIntrinsicsError("camera matrix is nil")
	}
	if r, c := cameraMatrix.Dims(); r != 3 || c != 3 {
		return CameraParameters{}, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	if len(distCoeffs) < 4 {
		return CameraParameters{}, errors.Errorf("expected at least 4 distortion coefficients, got %d", len(distCoeffs))
	}
	fx := cameraMatrix.At(0, 0)
	if fx == 0 {
		return CameraParameters{}, newInvalidParameterError("focal length fx", fx)
	}
	params := CameraParameters{
		Fx:   fx,
		Fy:   cameraMatrix.At(1, 1),
		Cx:   cameraMatrix.At(0, 2),
		Cy:   cameraMatrix.At(1, 2),
		Skew: cameraMatrix.At(0, 1) / fx,
		K1:   distCoeffs[0],
		K2:   distCoeffs[1],
		P1:   distCoeffs[2],
		P2:   distCoeffs[3],
	}
	if len(distCoeffs) > 4 {
		params.K3 = distCoeffs[4]
	}
	return params, nil
}

// DistortionCoefficients returns the model's coefficients in the OpenCV order (k1, k2, p1, p2, k3).
func (p CameraParameters) DistortionCoefficients() []float64 {
	return []float64{p.K1, p.K2, p.P1, p.P2, p.K3}
}
