// Package export converts pose data into serializable, name-keyed structures.
package export

import (
	"encoding/json"
	"io"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
)

// Pose is the exported form of a rigid transform: the rotation rows and the translation.
type Pose struct {
	R [3][3]float64 `json:"R"`
	T [3]float64    `json:"T"`
}

// NewPose exports a single transform.
func NewPose(rt spatialmath.RigidTransform) Pose {
	t := rt.Translation()
	return Pose{R: rt.Rotation(), T: [3]float64{t.X, t.Y, t.Z}}
}

// Transform converts the exported pose back into a transform.
func (p Pose) Transform() spatialmath.RigidTransform {
	return spatialmath.NewRigidTransform(p.R, r3.Vector{X: p.T[0], Y: p.T[1], Z: p.T[2]})
}

// Poses exports the valid entries of a table keyed by name. A nil names slice labels entries by index.
func Poses(table tables.PoseTable, names []string) map[string]Pose {
	if names == nil {
		names = tables.DefaultNames(table.Len())
	}
	out := map[string]Pose{}
	for i, name := range names {
		p, valid, err := table.Pose(i)
		if err != nil || !valid {
			continue
		}
		out[name] = NewPose(p)
	}
	return out
}

// PoseSet is the exported form of a static set of poses.
type PoseSet struct {
	Poses map[string]Pose `json:"poses"`
}

// RollingPose holds the start- and end-of-exposure poses of one frame as 4x4 rows.
type RollingPose struct {
	Start [][]float64 `json:"start"`
	End   [][]float64 `json:"end"`
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "error encoding export")
}
