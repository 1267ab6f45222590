package calibration

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

// InitialEstimates seeds the pose tables. Each pose is a 4x4 row-major matrix; null marks an entry with
// no estimate.
//
// Camera poses map rig coordinates into each camera, rig poses map world coordinates into the rig at
// each frame, and board poses map board coordinates into the world.
type InitialEstimates struct {
	Cameras []*spatialmath.RigidTransform `json:"cameras"`
	Rig     []*spatialmath.RigidTransform `json:"rig"`
	Boards  []*spatialmath.RigidTransform `json:"boards"`
}

// ReadInitialEstimates loads initial estimates from a JSON file.
func ReadInitialEstimates(path string) (*InitialEstimates, error) {
	var est InitialEstimates
	if err := utils.ReadJSONFile(path, &est); err != nil {
		return nil, errors.Wrap(err, "error reading initial estimates")
	}
	return &est, nil
}

// NewInitialEstimates creates estimates in which every given pose is valid.
func NewInitialEstimates(cameras, rig, boards tables.PoseTable) *InitialEstimates {
	return &InitialEstimates{Cameras: pointers(cameras), Rig: pointers(rig), Boards: pointers(boards)}
}

func pointers(table tables.PoseTable) []*spatialmath.RigidTransform {
	valid := table.Valid()
	return lo.Map(table.Poses(), func(p spatialmath.RigidTransform, i int) *spatialmath.RigidTransform {
		if !valid[i] {
			return nil
		}
		return &p
	})
}

// poseTable converts an estimate list into a table. Missing entries are invalid identities.
func poseTable(poses []*spatialmath.RigidTransform) (tables.PoseTable, error) {
	transforms := make([]spatialmath.RigidTransform, len(poses))
	valid := make([]bool, len(poses))
	for i, p := range poses {
		if p == nil {
			transforms[i] = spatialmath.Identity()
			continue
		}
		transforms[i] = *p
		valid[i] = true
	}
	return tables.NewPoseTable(transforms, valid)
}

func (est *InitialEstimates) check(cameras, frames, boards int) error {
	if len(est.Cameras) != cameras {
		return utils.NewShapeMismatchError("camera estimates", cameras, len(est.Cameras))
	}
	if len(est.Rig) != frames {
		return utils.NewShapeMismatchError("rig estimates", frames, len(est.Rig))
	}
	if len(est.Boards) != boards {
		return utils.NewShapeMismatchError("board estimates", boards, len(est.Boards))
	}
	return nil
}
