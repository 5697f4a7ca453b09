package transform

import (
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/lensmodel/logging"
	"go.viam.com/lensmodel/rimage"
)

// Interpolation selects how a source sample is read at a fractional coordinate.
type Interpolation string

const (
	// NearestNeighbor copies the sample at the truncated source coordinate.
	NearestNeighbor = Interpolation("nearest")
	// Bilinear blends the four samples around the source coordinate.
	Bilinear = Interpolation("bilinear")
)

// UndistortionMap holds, for every pixel of an undistorted image, the coordinate in the distorted
// image it is pulled from. Coordinates may be out of bounds, NaN or infinite; those pixels keep
// the background value.
type UndistortionMap struct {
	Width, Height int
	points        []r2.Point
}

// NewUndistortionMap runs the model's DistortionMap over every pixel of a width x height image.
// The model is not validated, so a model with a zero focal length yields a map that is entirely
// out of bounds.
func NewUndistortionMap(model *PinholeCameraModel, width, height int) *UndistortionMap {
	distortionMap := model.DistortionMap()
	points := make([]r2.Point, 0, width*height)
	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			x, y := distortionMap(float64(u), float64(v))
			points = append(points, r2.Point{X: x, Y: y})
		}
	}
	return &UndistortionMap{Width: width, Height: height, points: points}
}

// At returns the source coordinate for destination pixel (x, y).
func (um *UndistortionMap) At(x, y int) r2.Point {
	return um.points[y*um.Width+x]
}

// InBounds reports whether destination pixel (x, y) has a source inside the image.
func (um *UndistortionMap) InBounds(x, y int) bool {
	return rimage.In(um.At(x, y), um.Width, um.Height)
}

// Option configures an Undistorter.
type Option func(*Undistorter)

// WithInterpolation sets the sampling method. The default is NearestNeighbor.
func WithInterpolation(interp Interpolation) Option {
	return func(u *Undistorter) {
		u.interpolation = interp
	}
}

// WithWorkers splits the image into row bands processed concurrently. The default is 1.
func WithWorkers(workers int) Option {
	return func(u *Undistorter) {
		u.workers = workers
	}
}

// WithBackground sets the value of pixels whose source falls outside the image. The default is
// zero (black, and transparent for color images).
func WithBackground(c color.Color) Option {
	return func(u *Undistorter) {
		u.background = c
	}
}

// WithLogger sets the logger. The default is the "undistort" sublogger of logging.Global.
func WithLogger(logger logging.Logger) Option {
	return func(u *Undistorter) {
		u.logger = logger
	}
}

// Undistorter produces undistorted images from distorted ones by pulling every destination pixel
// from where its ray lands in the distorted image. The per-size UndistortionMap is cached, so an
// Undistorter should be reused across frames.
type Undistorter struct {
	model         *PinholeCameraModel
	interpolation Interpolation
	workers       int
	background    color.Color
	logger        logging.Logger

	mu    sync.Mutex
	cache *UndistortionMap
}

// NewUndistorter returns an Undistorter for a valid camera model.
func NewUndistorter(model *PinholeCameraModel, opts ...Option) (*Undistorter, error) {
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	u := &Undistorter{
		model:         model,
		interpolation: NearestNeighbor,
		workers:       1,
		background:    color.Transparent,
	}
	for _, opt := range opts {
		opt(u)
	}
	switch u.interpolation {
	case NearestNeighbor, Bilinear:
	default:
		return nil, errors.Errorf("unknown interpolation %q", u.interpolation)
	}
	if u.workers < 1 {
		return nil, errors.Errorf("workers must be at least 1, got %d", u.workers)
	}
	if u.background == nil {
		u.background = color.Transparent
	}
	if u.logger == nil {
		u.logger = logging.Global().Sublogger("undistort")
	}
	return u, nil
}

// Model returns the camera model used by the Undistorter.
func (u *Undistorter) Model() *PinholeCameraModel {
	return u.model
}

// Map returns the UndistortionMap for images of the given size, computing it on first use.
func (u *Undistorter) Map(width, height int) *UndistortionMap {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cache != nil && u.cache.Width == width && u.cache.Height == height {
		return u.cache
	}
	u.cache = NewUndistortionMap(u.model, width, height)
	u.logger.Debugw("built undistortion map", "width", width, "height", height, "model", u.model.String())
	return u.cache
}

func (u *Undistorter) checkSize(b image.Rectangle) error {
	in := u.model.intrinsics
	if in.Width == 0 && in.Height == 0 {
		return nil
	}
	if in.Width != b.Dx() || in.Height != b.Dy() {
		return errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			b.Dx(), b.Dy(), in.Width, in.Height)
	}
	return nil
}

// UndistortGray undistorts a single channel image. The result has the same size, starts at the
// origin, and holds the background value wherever the source coordinate is out of bounds.
func (u *Undistorter) UndistortGray(img *image.Gray) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	if err := u.checkSize(b); err != nil {
		return nil, err
	}
	width, height := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, width, height))
	if bg := color.GrayModel.Convert(u.background).(color.Gray); bg.Y != 0 {
		for i := range dst.Pix {
			dst.Pix[i] = bg.Y
		}
	}

	sample := rimage.NearestNeighborGray
	if u.interpolation == Bilinear {
		sample = rimage.BilinearGray
	}
	um := u.Map(width, height)
	err := u.forEachRow(height, func(y int) {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+width]
		for x := range row {
			if c, ok := sample(um.At(x, y), img); ok {
				row[x] = c.Y
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// UndistortImage undistorts an image of any color model, copying every channel at the resolved
// source coordinate.
func (u *Undistorter) UndistortImage(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := u.checkSize(img.Bounds()); err != nil {
		return nil, err
	}
	src := imaging.Clone(img)
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	dst := imaging.New(width, height, u.background)

	sample := rimage.NearestNeighborNRGBA
	if u.interpolation == Bilinear {
		sample = rimage.BilinearNRGBA
	}
	um := u.Map(width, height)
	err := u.forEachRow(height, func(y int) {
		for x := 0; x < width; x++ {
			if c, ok := sample(um.At(x, y), src); ok {
				i := dst.PixOffset(x, y)
				dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, c.A
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// forEachRow calls fn for every row, splitting the rows into bands when more than one worker is
// configured. Each row is handled by exactly one goroutine.
func (u *Undistorter) forEachRow(height int, fn func(y int)) error {
	if u.workers <= 1 || height < 2 {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return nil
	}
	band := (height + u.workers - 1) / u.workers
	var group errgroup.Group
	for start := 0; start < height; start += band {
		end := min(start+band, height)
		group.Go(func() error {
			for y := start; y < end; y++ {
				fn(y)
			}
			return nil
		})
	}
	return group.Wait()
}

// UndistortImage takes a single channel image and creates a new image the same size, but
// undistorted according to the model. Samples are pulled with nearest neighbor truncation and
// pixels whose source falls outside the input are left black.
func (params *PinholeCameraModel) UndistortImage(img *image.Gray) (*image.Gray, error) {
	u, err := NewUndistorter(params)
	if err != nil {
		return nil, err
	}
	return u.UndistortGray(img)
}
