//go:build withcv

package main

import (
	"go.viam.com/lensmodel/logging"
	"go.viam.com/lensmodel/rimage/calibration"
)

func newDetectingProvider(logger logging.Logger) (calibration.Provider, error) {
	return calibration.NewOpenCVCalibrator(logger)
}
