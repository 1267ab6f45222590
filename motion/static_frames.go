package motion

import (
	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
)

// StaticFrames is a motion model with a single pose per frame.
type StaticFrames struct {
	poses *optimization.PoseSet
}

// NewStaticFrames creates a static motion model over table.
func NewStaticFrames(table tables.PoseTable, names []string) (*StaticFrames, error) {
	poses, err := optimization.NewPoseSet(table, names)
	if err != nil {
		return nil, err
	}
	return &StaticFrames{poses: poses}, nil
}

// Params returns one RTVec per frame.
func (s *StaticFrames) Params() []float64 {
	return s.poses.Params()
}

// WithParams rebuilds the frames from params.
func (s *StaticFrames) WithParams(params []float64) (optimization.Parameters, error) {
	poses, err := s.poses.WithParams(params)
	if err != nil {
		return nil, err
	}
	return &StaticFrames{poses: poses.(*optimization.PoseSet)}, nil
}

// Sparsity maps each valid frame pose to the observations of that frame.
func (s *StaticFrames) Sparsity(m optimization.IndexMapper, axis optimization.Axis) optimization.Sparsity {
	return s.poses.Sparsity(m, axis)
}

// Export returns the valid frame poses keyed by name.
func (s *StaticFrames) Export() interface{} {
	return s.poses.Export()
}

// PoseSet returns the underlying poses.
func (s *StaticFrames) PoseSet() *optimization.PoseSet {
	return s.poses
}

// Len returns the number of frames.
func (s *StaticFrames) Len() int {
	return s.poses.Len()
}

// Valid returns which frames have a pose estimate.
func (s *StaticFrames) Valid() []bool {
	return s.poses.Valid()
}

// Names returns the frame names.
func (s *StaticFrames) Names() []string {
	return s.poses.Names()
}

// PoseAt returns the frame's pose; exposure time has no effect.
func (s *StaticFrames) PoseAt(frame int, _ float64) (spatialmath.RigidTransform, error) {
	p, _, err := s.poses.Pose(frame)
	return p, err
}
