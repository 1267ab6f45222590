package motion

import (
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rigcal/export"
	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

// RollingFrames models intra-exposure motion with two keyframe poses per frame, one at the start and
// one at the end of the exposure. Both keyframes share the frame's validity and name.
type RollingFrames struct {
	start []spatialmath.RigidTransform
	end   []spatialmath.RigidTransform
	valid []bool
	names []string

	paramsOnce sync.Once
	params     []float64
}

// RollingOption replaces part of a RollingFrames in Copy.
type RollingOption func(*RollingFrames)

// WithKeyframes replaces both keyframe sequences.
func WithKeyframes(start, end []spatialmath.RigidTransform) RollingOption {
	return func(rf *RollingFrames) {
		rf.start = append([]spatialmath.RigidTransform(nil), start...)
		rf.end = append([]spatialmath.RigidTransform(nil), end...)
	}
}

// WithFrameValid replaces the validity mask.
func WithFrameValid(valid []bool) RollingOption {
	return func(rf *RollingFrames) {
		rf.valid = append([]bool(nil), valid...)
	}
}

// WithFrameNames replaces the frame names.
func WithFrameNames(names []string) RollingOption {
	return func(rf *RollingFrames) {
		rf.names = append([]string(nil), names...)
	}
}

// NewRollingFrames creates a rolling shutter model from parallel start poses, end poses, validity and
// names. A nil names slice labels frames "0", "1", ...
func NewRollingFrames(start, end []spatialmath.RigidTransform, valid []bool, names []string) (*RollingFrames, error) {
	if names == nil {
		names = tables.DefaultNames(len(start))
	}
	rf := &RollingFrames{
		start: append([]spatialmath.RigidTransform(nil), start...),
		end:   append([]spatialmath.RigidTransform(nil), end...),
		valid: append([]bool(nil), valid...),
		names: append([]string(nil), names...),
	}
	if err := rf.check(); err != nil {
		return nil, err
	}
	return rf, nil
}

// NewRollingFramesFromTable seeds both keyframes of every frame with that frame's pose in table, so the
// model starts out with no intra-exposure motion. Validity is taken from the table.
func NewRollingFramesFromTable(table tables.PoseTable, names []string) (*RollingFrames, error) {
	poses := table.Poses()
	return NewRollingFrames(poses, poses, table.Valid(), names)
}

func (rf *RollingFrames) check() error {
	n := len(rf.start)
	if len(rf.end) != n {
		return utils.NewShapeMismatchError("rolling frames end poses", n, len(rf.end))
	}
	if len(rf.valid) != n {
		return utils.NewShapeMismatchError("rolling frames validity mask", n, len(rf.valid))
	}
	return errors.Wrap(tables.CheckNames(rf.names, n), "rolling frames")
}

// Copy returns a new RollingFrames with the given parts replaced. The receiver is unchanged.
func (rf *RollingFrames) Copy(opts ...RollingOption) (*RollingFrames, error) {
	out := &RollingFrames{start: rf.start, end: rf.end, valid: rf.valid, names: rf.names}
	for _, opt := range opts {
		opt(out)
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	return out, nil
}

// Params returns the start RTVecs of every frame followed by the end RTVecs of every frame.
func (rf *RollingFrames) Params() []float64 {
	rf.paramsOnce.Do(func() {
		if rf.params == nil {
			rf.params = append(spatialmath.TransformsToParams(rf.start), spatialmath.TransformsToParams(rf.end)...)
		}
	})
	return append([]float64(nil), rf.params...)
}

// WithParams splits params into start and end halves and decodes both, keeping validity and names.
func (rf *RollingFrames) WithParams(params []float64) (optimization.Parameters, error) {
	half := spatialmath.RTVecSize * len(rf.start)
	if len(params) != 2*half {
		return nil, utils.NewShapeMismatchError("rolling frames params", 2*half, len(params))
	}
	start, err := spatialmath.ParamsToTransforms(params[:half])
	if err != nil {
		return nil, err
	}
	end, err := spatialmath.ParamsToTransforms(params[half:])
	if err != nil {
		return nil, err
	}
	out, err := rf.Copy(WithKeyframes(start, end))
	if err != nil {
		return nil, err
	}
	out.params = append([]float64(nil), params...)
	return out, nil
}

// Sparsity maps each valid frame to the observations of that frame. Every observation depends on both
// of its frame's keyframes.
func (rf *RollingFrames) Sparsity(m optimization.IndexMapper, axis optimization.Axis) optimization.Sparsity {
	return m.BlockMapping(rf.valid, axis, spatialmath.RTVecSize, 0, spatialmath.RTVecSize*len(rf.start))
}

// Export returns the start and end poses of every valid frame keyed by name.
func (rf *RollingFrames) Export() interface{} {
	out := map[string]export.RollingPose{}
	for i, name := range rf.names {
		if !rf.valid[i] {
			continue
		}
		out[name] = export.RollingPose{Start: rf.start[i].Rows(), End: rf.end[i].Rows()}
	}
	return out
}

// Len returns the number of frames.
func (rf *RollingFrames) Len() int {
	return len(rf.start)
}

// Valid returns which frames have a pose estimate.
func (rf *RollingFrames) Valid() []bool {
	return append([]bool(nil), rf.valid...)
}

// Names returns the frame names.
func (rf *RollingFrames) Names() []string {
	return append([]string(nil), rf.names...)
}

// Start returns the start-of-exposure poses as a table.
func (rf *RollingFrames) Start() tables.PoseTable {
	t, _ := tables.NewPoseTable(rf.start, rf.valid)
	return t
}

// End returns the end-of-exposure poses as a table.
func (rf *RollingFrames) End() tables.PoseTable {
	t, _ := tables.NewPoseTable(rf.end, rf.valid)
	return t
}

// PoseAt interpolates between the frame's keyframes; t is clamped to [0, 1].
func (rf *RollingFrames) PoseAt(frame int, t float64) (spatialmath.RigidTransform, error) {
	if frame < 0 || frame >= len(rf.start) {
		return spatialmath.RigidTransform{}, utils.NewIndexOutOfRangeError(frame, len(rf.start))
	}
	return spatialmath.Interpolate(rf.start[frame], rf.end[frame], clamp01(t)), nil
}
