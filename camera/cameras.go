package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

// Cameras is the intrinsics of every camera in the rig as a Parameters node.
type Cameras struct {
	models []PinholeCameraModel
	names  []string
	fixed  bool
}

// CamerasOption replaces part of a Cameras in Copy.
type CamerasOption func(*Cameras)

// WithModels replaces the camera models.
func WithModels(models []PinholeCameraModel) CamerasOption {
	return func(c *Cameras) {
		c.models = append([]PinholeCameraModel(nil), models...)
	}
}

// WithIntrinsicsFixed holds every camera's intrinsics constant.
func WithIntrinsicsFixed(fixed bool) CamerasOption {
	return func(c *Cameras) {
		c.fixed = fixed
	}
}

// NewCameras creates the intrinsics node. A nil names slice labels cameras "0", "1", ...
func NewCameras(models []PinholeCameraModel, names []string) (*Cameras, error) {
	if names == nil {
		names = tables.DefaultNames(len(models))
	}
	c := &Cameras{models: append([]PinholeCameraModel(nil), models...), names: append([]string(nil), names...)}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cameras) check() error {
	if err := tables.CheckNames(c.names, len(c.models)); err != nil {
		return errors.Wrap(err, "cameras")
	}
	for i, m := range c.models {
		if err := m.CheckValid(); err != nil {
			return errors.Wrapf(err, "camera %q", c.names[i])
		}
	}
	return nil
}

// Copy returns a new Cameras with the given parts replaced. The receiver is unchanged.
func (c *Cameras) Copy(opts ...CamerasOption) (*Cameras, error) {
	out := &Cameras{models: c.models, names: c.names, fixed: c.fixed}
	for _, opt := range opts {
		opt(out)
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	return out, nil
}

// Params returns ParamsPerCamera scalars per camera.
func (c *Cameras) Params() []float64 {
	return lo.FlatMap(c.models, func(m PinholeCameraModel, _ int) []float64 { return m.Params() })
}

// WithParams rebuilds every camera model from params.
func (c *Cameras) WithParams(params []float64) (optimization.Parameters, error) {
	if want := ParamsPerCamera * len(c.models); len(params) != want {
		return nil, utils.NewShapeMismatchError("camera params", want, len(params))
	}
	models := make([]PinholeCameraModel, len(c.models))
	for i, m := range c.models {
		next, err := m.WithParams(params[i*ParamsPerCamera : (i+1)*ParamsPerCamera])
		if err != nil {
			return nil, err
		}
		models[i] = next
	}
	// candidate intrinsics are not validated here; a solver step may pass through invalid values
	return &Cameras{models: models, names: c.names, fixed: c.fixed}, nil
}

// Sparsity maps every camera's intrinsics to the observations made by that camera.
func (c *Cameras) Sparsity(m optimization.IndexMapper, axis optimization.Axis) optimization.Sparsity {
	if c.fixed {
		return optimization.Sparsity{}
	}
	valid := lo.Times(len(c.models), func(int) bool { return true })
	return m.BlockMapping(valid, axis, ParamsPerCamera)
}

// Export returns the camera models keyed by name.
func (c *Cameras) Export() interface{} {
	out := make(map[string]PinholeCameraModel, len(c.models))
	for i, name := range c.names {
		out[name] = c.models[i]
	}
	return out
}

// Len returns the number of cameras.
func (c *Cameras) Len() int {
	return len(c.models)
}

// Names returns the camera names.
func (c *Cameras) Names() []string {
	return append([]string(nil), c.names...)
}

// Model returns the model of camera i.
func (c *Cameras) Model(i int) (PinholeCameraModel, error) {
	if i < 0 || i >= len(c.models) {
		return PinholeCameraModel{}, utils.NewIndexOutOfRangeError(i, len(c.models))
	}
	return c.models[i], nil
}

// Project maps a point in the frame of camera i to a pixel.
func (c *Cameras) Project(i int, p r3.Vector) (r2.Point, bool, error) {
	m, err := c.Model(i)
	if err != nil {
		return r2.Point{}, false, err
	}
	px, ok := m.Project(p)
	return px, ok, nil
}
