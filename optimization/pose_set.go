package optimization

import (
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rigcal/export"
	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

// PoseSet is a named, validity-masked collection of rigid poses; the simplest Parameters node.
// Each pose contributes one RTVec to the parameter vector, invalid ones included, so indices never shift.
type PoseSet struct {
	table tables.PoseTable
	names []string
	fixed []bool

	cache *poseSetCache
}

type poseSetCache struct {
	paramsOnce sync.Once
	params     []float64

	inverseOnce sync.Once
	inverse     *PoseSet
}

// PoseSetOption replaces part of a PoseSet in Copy.
type PoseSetOption func(*PoseSet) error

// WithPoseTable replaces the pose table. The names and fixed mask must still match its length.
func WithPoseTable(table tables.PoseTable) PoseSetOption {
	return func(ps *PoseSet) error {
		ps.table = table
		return nil
	}
}

// WithNames replaces the names.
func WithNames(names []string) PoseSetOption {
	return func(ps *PoseSet) error {
		ps.names = append([]string(nil), names...)
		return nil
	}
}

// WithFixed marks the given entries as fixed. Fixed entries keep their slots in the parameter vector but
// never appear in the sparsity, so a solver cannot move them.
func WithFixed(indices ...int) PoseSetOption {
	return func(ps *PoseSet) error {
		fixed := make([]bool, ps.table.Len())
		for _, i := range indices {
			if i < 0 || i >= len(fixed) {
				return errors.Wrap(utils.NewIndexOutOfRangeError(i, len(fixed)), "fixed pose")
			}
			fixed[i] = true
		}
		ps.fixed = fixed
		return nil
	}
}

func withCachedParams(params []float64) PoseSetOption {
	return func(ps *PoseSet) error {
		ps.cache.params = append([]float64(nil), params...)
		return nil
	}
}

// NewPoseSet creates a PoseSet over table. A nil names slice labels entries "0", "1", ...
func NewPoseSet(table tables.PoseTable, names []string) (*PoseSet, error) {
	if names == nil {
		names = tables.DefaultNames(table.Len())
	}
	ps := &PoseSet{table: table, names: append([]string(nil), names...), cache: &poseSetCache{}}
	if err := ps.check(); err != nil {
		return nil, err
	}
	return ps, nil
}

func (ps *PoseSet) check() error {
	if err := tables.CheckNames(ps.names, ps.table.Len()); err != nil {
		return errors.Wrap(err, "pose set")
	}
	if ps.fixed != nil && len(ps.fixed) != ps.table.Len() {
		return utils.NewShapeMismatchError("pose set fixed mask", ps.table.Len(), len(ps.fixed))
	}
	return nil
}

// Copy returns a new PoseSet with the given parts replaced. The receiver is unchanged.
func (ps *PoseSet) Copy(opts ...PoseSetOption) (*PoseSet, error) {
	out := &PoseSet{table: ps.table, names: ps.names, fixed: ps.fixed, cache: &poseSetCache{}}
	for _, opt := range opts {
		if err := opt(out); err != nil {
			return nil, err
		}
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	return out, nil
}

// Params returns one RTVec per pose, concatenated.
func (ps *PoseSet) Params() []float64 {
	ps.cache.paramsOnce.Do(func() {
		if ps.cache.params == nil {
			ps.cache.params = spatialmath.TransformsToParams(ps.table.Poses())
		}
	})
	return append([]float64(nil), ps.cache.params...)
}

// WithParams decodes params into a new PoseSet with the same names, validity and fixed mask.
func (ps *PoseSet) WithParams(params []float64) (Parameters, error) {
	if want := spatialmath.RTVecSize * ps.table.Len(); len(params) != want {
		return nil, utils.NewShapeMismatchError("pose set params", want, len(params))
	}
	poses, err := spatialmath.ParamsToTransforms(params)
	if err != nil {
		return nil, err
	}
	table, err := ps.table.WithPoses(poses)
	if err != nil {
		return nil, err
	}
	return ps.Copy(WithPoseTable(table), withCachedParams(params))
}

// Sparsity maps every valid, non-fixed pose to the residual rows of observations along axis.
func (ps *PoseSet) Sparsity(m IndexMapper, axis Axis) Sparsity {
	return m.BlockMapping(ps.optimized(), axis, spatialmath.RTVecSize)
}

func (ps *PoseSet) optimized() []bool {
	valid := ps.table.Valid()
	for i, f := range ps.fixed {
		if f {
			valid[i] = false
		}
	}
	return valid
}

// Export returns the valid poses keyed by name.
func (ps *PoseSet) Export() interface{} {
	return export.PoseSet{Poses: export.Poses(ps.table, ps.names)}
}

// Inverse returns a PoseSet whose poses are the inverses of these. It is computed once per instance.
func (ps *PoseSet) Inverse() *PoseSet {
	ps.cache.inverseOnce.Do(func() {
		ps.cache.inverse = &PoseSet{
			table: ps.table.Inverse(),
			names: ps.names,
			fixed: ps.fixed,
			cache: &poseSetCache{},
		}
	})
	return ps.cache.inverse
}

// Table returns the underlying pose table.
func (ps *PoseSet) Table() tables.PoseTable {
	return ps.table
}

// Poses returns every pose, valid or not.
func (ps *PoseSet) Poses() []spatialmath.RigidTransform {
	return ps.table.Poses()
}

// Valid returns the validity mask.
func (ps *PoseSet) Valid() []bool {
	return ps.table.Valid()
}

// Names returns the entry names.
func (ps *PoseSet) Names() []string {
	return append([]string(nil), ps.names...)
}

// Fixed returns which entries are held constant.
func (ps *PoseSet) Fixed() []bool {
	if ps.fixed == nil {
		return make([]bool, ps.table.Len())
	}
	return append([]bool(nil), ps.fixed...)
}

// Len returns the number of entries.
func (ps *PoseSet) Len() int {
	return ps.table.Len()
}

// Pose returns the entry at index i and whether it is valid.
func (ps *PoseSet) Pose(i int) (spatialmath.RigidTransform, bool, error) {
	return ps.table.Pose(i)
}
