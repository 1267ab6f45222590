package calibration

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rigcal/board"
	"go.viam.com/rigcal/camera"
	"go.viam.com/rigcal/config"
	"go.viam.com/rigcal/motion"
	"go.viam.com/rigcal/optimization"
)

// Names of the parameter tree's children.
const (
	NodeCameras    = "cameras"
	NodeRig        = "rig"
	NodeBoards     = "boards"
	NodeIntrinsics = "intrinsics"
)

// Workspace is a calibration problem ready to solve: the parameter tree, the observations it must
// explain and the index mapper relating the two. It is not modified after Build.
type Workspace struct {
	cfg    *config.Config
	board  board.Chessboard
	points []r3.Vector

	mapper optimization.IndexMapper
	// pixels[k] is the detected pixel of observation k.
	pixels []r2.Point
	root   *optimization.Composite
}

// Load reads the detections and initial estimates named by cfg and builds the workspace.
func Load(cfg *config.Config) (*Workspace, error) {
	det, err := ReadDetections(cfg.Detections)
	if err != nil {
		return nil, err
	}
	est, err := ReadInitialEstimates(cfg.InitialEstimates)
	if err != nil {
		return nil, err
	}
	return Build(cfg, det, est)
}

// Build assembles the parameter tree
//
//	cameras    PoseSet along cameras, camera 0 fixed
//	rig        MotionModel along frames
//	boards     PoseSet along boards, board 0 fixed unless disabled
//	intrinsics Cameras along cameras, fixed unless optimize_intrinsics is set
//
// and indexes the detected observations.
func Build(cfg *config.Config, det *Detections, est *InitialEstimates) (*Workspace, error) {
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	numCameras, numPoints := len(cfg.Cameras), cfg.Board.NumPoints()
	mask, observed, err := det.Observations(numCameras, numPoints)
	if err != nil {
		return nil, err
	}
	if err := est.check(numCameras, len(det.Frames), len(det.Boards)); err != nil {
		return nil, err
	}

	cameraTable, err := poseTable(est.Cameras)
	if err != nil {
		return nil, err
	}
	cameraPoses, err := optimization.NewPoseSet(cameraTable, cfg.CameraNames())
	if err != nil {
		return nil, errors.Wrap(err, "error creating camera poses")
	}
	// camera 0 defines the rig frame
	if cameraPoses, err = cameraPoses.Copy(optimization.WithFixed(0)); err != nil {
		return nil, err
	}

	rigTable, err := poseTable(est.Rig)
	if err != nil {
		return nil, err
	}
	rig, err := motion.New(cfg.Motion(), rigTable, det.Frames)
	if err != nil {
		return nil, errors.Wrap(err, "error creating rig poses")
	}

	boardTable, err := poseTable(est.Boards)
	if err != nil {
		return nil, err
	}
	boardPoses, err := optimization.NewPoseSet(boardTable, det.Boards)
	if err != nil {
		return nil, errors.Wrap(err, "error creating board poses")
	}
	if cfg.FixesFirstBoard() {
		if boardPoses, err = boardPoses.Copy(optimization.WithFixed(0)); err != nil {
			return nil, err
		}
	}

	// observations through a missing pose estimate are left out of the problem
	for _, restrict := range []struct {
		axis  optimization.Axis
		valid []bool
	}{
		{optimization.AxisCamera, cameraTable.Valid()},
		{optimization.AxisFrame, rigTable.Valid()},
		{optimization.AxisBoard, boardTable.Valid()},
	} {
		if mask, err = mask.Restrict(restrict.axis, restrict.valid); err != nil {
			return nil, err
		}
	}

	intrinsics, err := camera.NewCameras(cfg.CameraModels(), cfg.CameraNames())
	if err != nil {
		return nil, err
	}
	if intrinsics, err = intrinsics.Copy(camera.WithIntrinsicsFixed(!cfg.OptimizeIntrinsics)); err != nil {
		return nil, err
	}

	root, err := optimization.NewComposite(
		optimization.ChildAlong(NodeCameras, cameraPoses, optimization.AxisCamera),
		optimization.ChildAlong(NodeRig, rig, optimization.AxisFrame),
		optimization.ChildAlong(NodeBoards, boardPoses, optimization.AxisBoard),
		optimization.ChildAlong(NodeIntrinsics, intrinsics, optimization.AxisCamera),
	)
	if err != nil {
		return nil, err
	}

	mapper := optimization.NewIndexMapper(mask)
	pixels := make([]r2.Point, mapper.NumObservations())
	for k, o := range mapper.Observations() {
		pixels[k] = observed[o]
	}
	return &Workspace{
		cfg:    cfg,
		board:  cfg.Board,
		points: cfg.Board.Points(),
		mapper: mapper,
		pixels: pixels,
		root:   root,
	}, nil
}

// Root returns the initial parameter tree.
func (w *Workspace) Root() *optimization.Composite {
	return w.root
}

// Mapper returns the observation index.
func (w *Workspace) Mapper() optimization.IndexMapper {
	return w.mapper
}

// Config returns the run configuration.
func (w *Workspace) Config() *config.Config {
	return w.cfg
}

// Board returns the calibration target geometry.
func (w *Workspace) Board() board.Chessboard {
	return w.board
}

// Pixel returns the detected pixel of observation k.
func (w *Workspace) Pixel(k int) r2.Point {
	return w.pixels[k]
}
