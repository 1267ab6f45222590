// Package motion contains the models of how the rig moves during and between frames.
package motion

import (
	"github.com/pkg/errors"

	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
)

// Kind names a motion model.
type Kind string

// The available motion models.
const (
	// Static models a global shutter: one pose per frame.
	Static Kind = "static"
	// Rolling models a rolling shutter: a start and end pose per frame, interpolated down the image.
	Rolling Kind = "rolling"
)

// MotionModel is a Parameters node holding the rig pose of every frame.
type MotionModel interface {
	optimization.Parameters

	// Len returns the number of frames.
	Len() int
	// Valid returns which frames have a pose estimate.
	Valid() []bool
	// Names returns the frame names.
	Names() []string
	// PoseAt returns the rig pose of a frame at exposure time t in [0, 1].
	PoseAt(frame int, t float64) (spatialmath.RigidTransform, error)
}

// New creates a motion model of the given kind seeded from table.
func New(kind Kind, table tables.PoseTable, names []string) (MotionModel, error) {
	switch kind {
	case Static, "":
		return NewStaticFrames(table, names)
	case Rolling:
		return NewRollingFramesFromTable(table, names)
	default:
		return nil, errors.Errorf("unknown motion model %q", kind)
	}
}

// ExposureTime returns the normalized time at which image row y was exposed, for an image of the
// given height. Rows are exposed top to bottom, so the result is y/height clamped to [0, 1].
func ExposureTime(y, height float64) float64 {
	if height <= 0 {
		return 0
	}
	return clamp01(y / height)
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
