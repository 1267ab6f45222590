// Package calibration assembles detections, initial estimates and camera models into a parameter tree
// and refines it by minimizing reprojection error.
package calibration

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

// A Detection is the board corners one camera found in one frame.
type Detection struct {
	Camera int          `json:"camera"`
	Frame  int          `json:"frame"`
	Board  int          `json:"board"`
	IDs    []int        `json:"ids"`
	Pixels [][2]float64 `json:"pixels"`
}

// Detections is every corner detected across the capture. Frames and Boards name the frames and
// boards; their lengths fix how many there are.
type Detections struct {
	Frames     []string    `json:"frames"`
	Boards     []string    `json:"boards"`
	Detections []Detection `json:"detections"`
}

// ReadDetections loads detections from a JSON file.
func ReadDetections(path string) (*Detections, error) {
	var det Detections
	if err := utils.ReadJSONFile(path, &det); err != nil {
		return nil, errors.Wrap(err, "error reading detections")
	}
	return &det, nil
}

// Validate checks every detection against the rig dimensions. Every problem found is reported.
func (det *Detections) Validate(cameras, points int) error {
	var err error
	if len(det.Frames) == 0 {
		err = multierr.Append(err, errors.New("detections: no frames"))
	}
	if len(det.Boards) == 0 {
		err = multierr.Append(err, errors.New("detections: no boards"))
	}
	err = multierr.Append(err, errors.Wrap(tables.CheckNames(det.Frames, len(det.Frames)), "detections: frames"))
	err = multierr.Append(err, errors.Wrap(tables.CheckNames(det.Boards, len(det.Boards)), "detections: boards"))

	seen := map[optimization.Observation]bool{}
	for i, d := range det.Detections {
		path := fmt.Sprintf("detections.%d", i)
		if d.Camera < 0 || d.Camera >= cameras {
			err = multierr.Append(err, errors.Wrapf(utils.NewIndexOutOfRangeError(d.Camera, cameras), "%s: camera", path))
		}
		if d.Frame < 0 || d.Frame >= len(det.Frames) {
			err = multierr.Append(err, errors.Wrapf(utils.NewIndexOutOfRangeError(d.Frame, len(det.Frames)), "%s: frame", path))
		}
		if d.Board < 0 || d.Board >= len(det.Boards) {
			err = multierr.Append(err, errors.Wrapf(utils.NewIndexOutOfRangeError(d.Board, len(det.Boards)), "%s: board", path))
		}
		if len(d.IDs) != len(d.Pixels) {
			err = multierr.Append(err, errors.Wrap(utils.NewShapeMismatchError("pixels", len(d.IDs), len(d.Pixels)), path))
			continue
		}
		for _, id := range d.IDs {
			if id < 0 || id >= points {
				err = multierr.Append(err, errors.Wrapf(utils.NewIndexOutOfRangeError(id, points), "%s: point id", path))
				continue
			}
			o := optimization.Observation{Camera: d.Camera, Frame: d.Frame, Board: d.Board, Point: id}
			if seen[o] {
				err = multierr.Append(err, errors.Errorf("%s: point %d detected twice", path, id))
			}
			seen[o] = true
		}
	}
	return err
}

// Observations validates the detections and returns the observation mask along with each observed
// pixel.
func (det *Detections) Observations(cameras, points int) (optimization.ObservationMask, map[optimization.Observation]r2.Point, error) {
	if err := det.Validate(cameras, points); err != nil {
		return optimization.ObservationMask{}, nil, err
	}
	frames, boards := len(det.Frames), len(det.Boards)
	valid := make([]bool, cameras*frames*boards*points)
	pixels := map[optimization.Observation]r2.Point{}
	for _, d := range det.Detections {
		for j, id := range d.IDs {
			valid[((d.Camera*frames+d.Frame)*boards+d.Board)*points+id] = true
			o := optimization.Observation{Camera: d.Camera, Frame: d.Frame, Board: d.Board, Point: id}
			pixels[o] = r2.Point{X: d.Pixels[j][0], Y: d.Pixels[j][1]}
		}
	}
	mask, err := optimization.NewObservationMask(cameras, frames, boards, points, valid)
	if err != nil {
		return optimization.ObservationMask{}, nil, err
	}
	return mask, pixels, nil
}
