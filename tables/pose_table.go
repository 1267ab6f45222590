// Package tables contains the ordered, validity-masked pose tables that parameter nodes are built from.
package tables

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/utils"
)

// PoseTable is an ordered sequence of rigid transforms, each flagged valid or not. Invalid entries keep
// their slot so that indices into the table never shift. A PoseTable is immutable; the constructors copy
// their inputs and the accessors return copies.
type PoseTable struct {
	poses []spatialmath.RigidTransform
	valid []bool
}

// NewPoseTable creates a table from parallel pose and validity slices.
func NewPoseTable(poses []spatialmath.RigidTransform, valid []bool) (PoseTable, error) {
	if len(poses) != len(valid) {
		return PoseTable{}, utils.NewShapeMismatchError("pose table validity mask", len(poses), len(valid))
	}
	return PoseTable{
		poses: append([]spatialmath.RigidTransform(nil), poses...),
		valid: append([]bool(nil), valid...),
	}, nil
}

// NewValidPoseTable creates a table where every pose is valid.
func NewValidPoseTable(poses []spatialmath.RigidTransform) PoseTable {
	return PoseTable{
		poses: append([]spatialmath.RigidTransform(nil), poses...),
		valid: lo.Times(len(poses), func(int) bool { return true }),
	}
}

// Identities creates a table of n valid identity poses.
func Identities(n int) PoseTable {
	return NewValidPoseTable(lo.Times(n, func(int) spatialmath.RigidTransform { return spatialmath.Identity() }))
}

// Len returns the number of entries, valid or not.
func (pt PoseTable) Len() int {
	return len(pt.poses)
}

// Poses returns a copy of every pose, including invalid ones.
func (pt PoseTable) Poses() []spatialmath.RigidTransform {
	return append([]spatialmath.RigidTransform(nil), pt.poses...)
}

// Valid returns a copy of the validity mask.
func (pt PoseTable) Valid() []bool {
	return append([]bool(nil), pt.valid...)
}

// ValidCount returns how many entries are valid.
func (pt PoseTable) ValidCount() int {
	return lo.Count(pt.valid, true)
}

// Pose returns the entry at index i and whether it is valid.
func (pt PoseTable) Pose(i int) (spatialmath.RigidTransform, bool, error) {
	if i < 0 || i >= len(pt.poses) {
		return spatialmath.RigidTransform{}, false, utils.NewIndexOutOfRangeError(i, len(pt.poses))
	}
	return pt.poses[i], pt.valid[i], nil
}

// WithPoses returns a table with the same validity mask and the given poses.
func (pt PoseTable) WithPoses(poses []spatialmath.RigidTransform) (PoseTable, error) {
	return NewPoseTable(poses, pt.valid)
}

// WithValid returns a table with the same poses and the given validity mask.
func (pt PoseTable) WithValid(valid []bool) (PoseTable, error) {
	return NewPoseTable(pt.poses, valid)
}

// Inverse returns a table whose poses are the inverses of these, with the same validity.
func (pt PoseTable) Inverse() PoseTable {
	return PoseTable{
		poses: lo.Map(pt.poses, func(p spatialmath.RigidTransform, _ int) spatialmath.RigidTransform {
			return p.Inverse()
		}),
		valid: pt.Valid(),
	}
}

// DefaultNames returns "0", "1", ... for tables whose entries were not given names.
func DefaultNames(n int) []string {
	return lo.Times(n, func(i int) string { return strconv.Itoa(i) })
}

// CheckNames verifies that names label a table of n entries with unique labels.
func CheckNames(names []string, n int) error {
	if len(names) != n {
		return utils.NewShapeMismatchError("names", n, len(names))
	}
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return errors.Errorf("duplicate names %v", dups)
	}
	return nil
}
