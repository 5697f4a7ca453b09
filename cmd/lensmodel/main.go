// Package main undistorts images, measures lens distortion and calibrates cameras from the
// command line.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"go.viam.com/lensmodel/logging"
	"go.viam.com/lensmodel/rimage/calibration"
	"go.viam.com/lensmodel/rimage/transform"
)

var logger = logging.NewLogger("lensmodel")

func main() {
	logging.ReplaceGlobal(logger)
	utils.ContextualMain(realMain, logger)
}

// undistortArguments are the arguments of the undistort command.
type undistortArguments struct {
	Config        string `flag:"0,required,usage=undistort config JSON file"`
	Input         string `flag:"1,required,usage=distorted input image"`
	Output        string `flag:"2,required,usage=undistorted output image"`
	Workers       int    `flag:"workers,usage=number of goroutines to undistort with"`
	Interpolation string `flag:"interpolation,usage=nearest or bilinear"`
	Debug         bool   `flag:"debug,usage=enable debug logging"`
}

// statsArguments are the arguments of the stats command.
type statsArguments struct {
	Config string `flag:"0,required,usage=camera model JSON file"`
	Width  int    `flag:"width,usage=image width; defaults to the width in the config"`
	Height int    `flag:"height,usage=image height; defaults to the height in the config"`
}

// calibrateArguments are the arguments of the calibrate command.
type calibrateArguments struct {
	Source string `flag:"0,required,usage=directory or glob of checkerboard images"`
	Output string `flag:"1,required,usage=camera model JSON file to write"`
	Cols   int    `flag:"cols,default=4,usage=inner corners per checkerboard row"`
	Rows   int    `flag:"rows,default=7,usage=inner corners per checkerboard column"`
	Params string `flag:"params,usage=use the parameters of this camera model JSON file instead of detecting the pattern"`
	Debug  bool   `flag:"debug,usage=enable debug logging"`
}

func realMain(ctx context.Context, args []string, logger logging.Logger) error {
	if len(args) < 2 {
		return errors.New("need to specify a command: undistort, stats or calibrate")
	}
	cmdArgs := append([]string{args[0] + " " + args[1]}, args[2:]...)
	switch args[1] {
	case "undistort":
		var parsed undistortArguments
		if err := utils.ParseFlags(cmdArgs, &parsed); err != nil {
			return err
		}
		return undistort(parsed, logger)
	case "stats":
		var parsed statsArguments
		if err := utils.ParseFlags(cmdArgs, &parsed); err != nil {
			return err
		}
		return stats(parsed, logger)
	case "calibrate":
		var parsed calibrateArguments
		if err := utils.ParseFlags(cmdArgs, &parsed); err != nil {
			return err
		}
		return calibrate(ctx, parsed, logger)
	default:
		return errors.Errorf("unknown command: [%s]", args[1])
	}
}

func readAttributes(path string) (map[string]interface{}, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	attrs := map[string]interface{}{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Wrapf(err, "error parsing %s", path)
	}
	return attrs, nil
}

func undistort(args undistortArguments, logger logging.Logger) error {
	if args.Debug {
		logger.SetLevel(zapcore.DebugLevel)
	}
	attrs, err := readAttributes(args.Config)
	if err != nil {
		return err
	}
	conf, err := transform.DecodeUndistortConfig(attrs)
	if err != nil {
		return err
	}
	if args.Workers != 0 {
		conf.Workers = args.Workers
	}
	if args.Interpolation != "" {
		conf.Interpolation = transform.Interpolation(args.Interpolation)
	}
	undistorter, err := transform.NewUndistorterFromConfig(conf, logger.Sublogger("undistort"))
	if err != nil {
		return err
	}

	img, err := imaging.Open(args.Input)
	if err != nil {
		return err
	}
	out, err := undistorter.UndistortImage(img)
	if err != nil {
		return err
	}
	if err := imaging.Save(out, args.Output); err != nil {
		return err
	}
	logger.Infow("wrote undistorted image", "input", args.Input, "output", args.Output, "size", out.Bounds().Size())
	return nil
}

func stats(args statsArguments, logger logging.Logger) error {
	model, err := transform.NewPinholeCameraModelFromJSONFile(args.Config)
	if err != nil {
		return err
	}
	width, height := model.Intrinsics().Width, model.Intrinsics().Height
	if args.Width != 0 {
		width = args.Width
	}
	if args.Height != 0 {
		height = args.Height
	}
	st, err := transform.MeasureDistortion(model, width, height)
	if err != nil {
		return err
	}
	logger.Infow("distortion",
		"mean_px", st.MeanDisplacement,
		"max_px", st.MaxDisplacement,
		"p95_px", st.P95Displacement,
		"out_of_bounds", st.OutOfBoundsFraction)
	return nil
}

func calibrate(ctx context.Context, args calibrateArguments, logger logging.Logger) error {
	if args.Debug {
		logger.SetLevel(zapcore.DebugLevel)
	}
	var provider calibration.Provider
	if args.Params != "" {
		static, err := calibration.NewStaticProviderFromJSONFile(args.Params)
		if err != nil {
			return err
		}
		provider = static
	} else {
		detecting, err := newDetectingProvider(logger.Sublogger("calibration"))
		if err != nil {
			return err
		}
		provider = detecting
	}

	res, err := provider.Calibrate(ctx, args.Source, calibration.CheckerboardPattern{Cols: args.Cols, Rows: args.Rows})
	if err != nil {
		return err
	}
	model, err := res.Model()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(transform.NewModelConfig(model), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(args.Output, data, 0o600); err != nil {
		return err
	}
	logger.Infow("wrote camera model", "output", args.Output, "rms", res.RMS, "skipped", len(res.Skipped))
	return nil
}
