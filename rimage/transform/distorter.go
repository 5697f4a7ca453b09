package transform

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// BrownConradyDistortionType is the radial/tangential model whose tangential terms are scaled by
	// the radial factor. It is the default model.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// TextbookBrownConradyDistortionType is the Brown-Conrady model as written in the OpenCV
	// documentation, with uncoupled tangential terms.
	TextbookBrownConradyDistortionType = DistortionType("brown_conrady_textbook")
	// NoDistortionType is the identity model of an ideal lens.
	NoDistortionType = DistortionType("none")
)

// Distorter defines a Transform that takes an undistorted normalized point and returns where that
// point appears under the lens distortion of the model.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// ErrInvalidDistortion is wrapped by every error describing bad distortion parameters.
var ErrInvalidDistortion = errors.New("invalid distortion_parameters")

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(ErrInvalidDistortion, msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters. An empty
// DistortionType selects the Brown-Conrady model.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case BrownConradyDistortionType, "":
		return NewBrownConrady(parameters)
	case TextbookBrownConradyDistortionType:
		bc, err := NewBrownConrady(parameters)
		if err != nil {
			return nil, err
		}
		return TextbookBrownConrady(bc), nil
	case NoDistortionType:
		if len(parameters) != 0 {
			return nil, errors.Errorf("%q distortion model takes no parameters, got %d", distortionType, len(parameters))
		}
		return NoDistortion{}, nil
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// NoDistortion is the distortion of an ideal pinhole lens.
type NoDistortion struct{}

// ModelType returns the type of distortion model.
func (NoDistortion) ModelType() DistortionType {
	return NoDistortionType
}

// CheckValid always succeeds.
func (NoDistortion) CheckValid() error {
	return nil
}

// Parameters returns an empty list.
func (NoDistortion) Parameters() []float64 {
	return []float64{}
}

// Transform returns its input.
func (NoDistortion) Transform(x, y float64) (float64, float64) {
	return x, y
}
