package transform

import (
	"encoding/json"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/lensmodel/logging"
)

// ModelConfig is the serialized form of a PinholeCameraModel.
type ModelConfig struct {
	Intrinsics     *PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	DistortionType DistortionType           `json:"distortion_type,omitempty"`
	Distortion     *BrownConrady            `json:"distortion_parameters,omitempty"`
}

// Validate checks that the config describes a usable camera model.
func (cfg *ModelConfig) Validate(path string) error {
	if cfg.Intrinsics == nil {
		return errors.Wrapf(NewNoIntrinsicsError("intrinsic_parameters are required"), "%s", path)
	}
	if _, err := cfg.Model(); err != nil {
		return errors.Wrapf(err, "%s", path)
	}
	return nil
}

// Model builds the camera model described by the config.
func (cfg *ModelConfig) Model() (*PinholeCameraModel, error) {
	if cfg.Intrinsics == nil {
		return nil, NewNoIntrinsicsError("intrinsic_parameters are required")
	}
	var params []float64
	if cfg.Distortion != nil {
		params = cfg.Distortion.Parameters()
	}
	if cfg.DistortionType == NoDistortionType {
		params = nil
	}
	distortion, err := NewDistorter(cfg.DistortionType, params)
	if err != nil {
		return nil, err
	}
	return NewPinholeCameraModelWithDistortion(*cfg.Intrinsics, distortion)
}

// NewModelConfig returns the config that reproduces model.
func NewModelConfig(model *PinholeCameraModel) *ModelConfig {
	intrinsics := model.Intrinsics()
	cfg := &ModelConfig{Intrinsics: &intrinsics, DistortionType: model.Distortion().ModelType()}
	if cfg.DistortionType != NoDistortionType {
		p := model.Parameters()
		cfg.Distortion = &BrownConrady{p.K1, p.K2, p.K3, p.P1, p.P2}
	}
	return cfg
}

// NewPinholeCameraModelFromJSONFile takes in a file path to a JSON ModelConfig and turns it into
// a PinholeCameraModel.
func NewPinholeCameraModelFromJSONFile(jsonPath string) (*PinholeCameraModel, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	cfg := &ModelConfig{}
	if err := json.Unmarshal(byteValue, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := cfg.Validate(jsonPath); err != nil {
		return nil, err
	}
	return cfg.Model()
}

// UndistortConfig configures an Undistorter from an attribute map.
type UndistortConfig struct {
	ModelConfig
	Interpolation Interpolation `json:"interpolation,omitempty"`
	Workers       int           `json:"workers,omitempty"`
	// Background is the gray level, 0 to 255, of pixels pulled from outside the image. When
	// unset the Undistorter default is kept.
	Background *int `json:"background,omitempty"`
}

// DecodeUndistortConfig decodes an attribute map, using the json field names, into an
// UndistortConfig and validates it.
func DecodeUndistortConfig(attributes map[string]interface{}) (*UndistortConfig, error) {
	conf := &UndistortConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Squash:  true,
		Result:  conf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "error decoding undistort attributes")
	}
	if err := conf.ModelConfig.Validate("attributes"); err != nil {
		return nil, err
	}
	if conf.Background != nil && (*conf.Background < 0 || *conf.Background > math.MaxUint8) {
		return nil, errors.Errorf("background must be between 0 and 255, got %d", *conf.Background)
	}
	return conf, nil
}

// NewUndistorterFromConfig builds the camera model and Undistorter described by conf.
func NewUndistorterFromConfig(conf *UndistortConfig, logger logging.Logger) (*Undistorter, error) {
	model, err := conf.Model()
	if err != nil {
		return nil, err
	}
	var opts []Option
	if conf.Background != nil {
		opts = append(opts, WithBackground(color.Gray{Y: uint8(*conf.Background)}))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	if conf.Interpolation != "" {
		opts = append(opts, WithInterpolation(conf.Interpolation))
	}
	if conf.Workers != 0 {
		opts = append(opts, WithWorkers(conf.Workers))
	}
	return NewUndistorter(model, opts...)
}
