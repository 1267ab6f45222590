package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ParamsPerCamera is the number of optimized scalars per camera: fx, fy, ppx, ppy and the five
// Brown-Conrady coefficients.
const ParamsPerCamera = 4 + BrownConradyParams

// PinholeCameraModel is the model of a pinhole camera with lens distortion.
type PinholeCameraModel struct {
	PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion              BrownConrady `json:"distortion_parameters"`
}

// CheckValid checks the intrinsics.
func (cm PinholeCameraModel) CheckValid() error {
	return cm.PinholeCameraIntrinsics.CheckValid()
}

// Project maps a point in the camera frame to a distorted pixel. Points on or behind the image plane
// do not project.
func (cm PinholeCameraModel) Project(p r3.Vector) (r2.Point, bool) {
	if p.Z <= 0 {
		return r2.Point{}, false
	}
	x, y := cm.Distortion.Distort(p.X/p.Z, p.Y/p.Z)
	return cm.ToPixel(x, y), true
}

// Params returns the optimized scalars in order.
func (cm PinholeCameraModel) Params() []float64 {
	return append([]float64{cm.Fx, cm.Fy, cm.Ppx, cm.Ppy}, cm.Distortion.Parameters()...)
}

// WithParams returns a model with the same image size and the given scalars.
func (cm PinholeCameraModel) WithParams(params []float64) (PinholeCameraModel, error) {
	if len(params) != ParamsPerCamera {
		return PinholeCameraModel{}, errors.Errorf("camera model expects %d params, got %d", ParamsPerCamera, len(params))
	}
	distortion, err := NewBrownConrady(params[4:])
	if err != nil {
		return PinholeCameraModel{}, err
	}
	cm.Fx, cm.Fy, cm.Ppx, cm.Ppy = params[0], params[1], params[2], params[3]
	cm.Distortion = distortion
	return cm, nil
}
