//go:build !withcv

package main

import (
	"github.com/pkg/errors"

	"go.viam.com/lensmodel/logging"
	"go.viam.com/lensmodel/rimage/calibration"
)

func newDetectingProvider(logger logging.Logger) (calibration.Provider, error) {
	return nil, errors.New("checkerboard detection needs a build with the withcv tag; pass --params to use known parameters")
}
