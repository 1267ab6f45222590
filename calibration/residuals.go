package calibration

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigcal/camera"
	"go.viam.com/rigcal/motion"
	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/utils"
)

// tree is a parameter tree unpacked for evaluation.
type tree struct {
	cameras    []spatialmath.RigidTransform
	rig        motion.MotionModel
	boards     []spatialmath.RigidTransform
	intrinsics *camera.Cameras
}

func unpack(node optimization.Parameters) (*tree, error) {
	root, ok := node.(*optimization.Composite)
	if !ok {
		return nil, utils.NewUnexpectedTypeError(root, node)
	}
	cameras, err := optimization.NodeAs[*optimization.PoseSet](root, NodeCameras)
	if err != nil {
		return nil, err
	}
	rig, err := optimization.NodeAs[motion.MotionModel](root, NodeRig)
	if err != nil {
		return nil, err
	}
	boards, err := optimization.NodeAs[*optimization.PoseSet](root, NodeBoards)
	if err != nil {
		return nil, err
	}
	intrinsics, err := optimization.NodeAs[*camera.Cameras](root, NodeIntrinsics)
	if err != nil {
		return nil, err
	}
	return &tree{cameras: cameras.Poses(), rig: rig, boards: boards.Poses(), intrinsics: intrinsics}, nil
}

// project maps a board point into the image of the observing camera. Rolling shutter rig poses are
// taken at the time the detected pixel's row was exposed. A point behind the camera reports ok=false.
func (t *tree) project(o optimization.Observation, point r3.Vector, detected r2.Point) (r2.Point, bool, error) {
	model, err := t.intrinsics.Model(o.Camera)
	if err != nil {
		return r2.Point{}, false, err
	}
	rigPose, err := t.rig.PoseAt(o.Frame, motion.ExposureTime(detected.Y, float64(model.Height)))
	if err != nil {
		return r2.Point{}, false, err
	}
	inCamera := t.cameras[o.Camera].Compose(rigPose).Compose(t.boards[o.Board]).Apply(point)
	px, ok := model.Project(inCamera)
	return px, ok, nil
}

// Residuals returns projected minus detected pixel coordinates, two rows per observation in index
// mapper order.
func (w *Workspace) Residuals(node optimization.Parameters) ([]float64, error) {
	return w.residuals(context.Background(), node)
}

func (w *Workspace) residuals(ctx context.Context, node optimization.Parameters) ([]float64, error) {
	t, err := unpack(node)
	if err != nil {
		return nil, err
	}
	observations := w.mapper.Observations()
	out := make([]float64, optimization.ResidualWidth*len(observations))
	groupErrs := make([]error, utils.ParallelFactor)
	if err := utils.GroupWorkParallel(ctx, len(observations), func(groupNum, from, to int) {
		for k := from; k < to; k++ {
			o := observations[k]
			detected := w.Pixel(k)
			px, ok, err := t.project(o, w.points[o.Point], detected)
			if err != nil {
				groupErrs[groupNum] = errors.Wrapf(err, "observation %d", k)
				return
			}
			if !ok {
				// points behind the camera cost a full image of error
				model, _ := t.intrinsics.Model(o.Camera)
				out[2*k], out[2*k+1] = float64(model.Width), float64(model.Height)
				continue
			}
			out[2*k], out[2*k+1] = px.X-detected.X, px.Y-detected.Y
		}
	}); err != nil {
		return nil, err
	}
	if err := multierr.Combine(groupErrs...); err != nil {
		return nil, err
	}
	return out, nil
}

// ReprojectionErrors returns the pixel distance between projected and detected points for every
// observation.
func (w *Workspace) ReprojectionErrors(node optimization.Parameters) ([]float64, error) {
	res, err := w.Residuals(node)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(res)/optimization.ResidualWidth)
	for k := range out {
		out[k] = math.Hypot(res[2*k], res[2*k+1])
	}
	return out, nil
}
