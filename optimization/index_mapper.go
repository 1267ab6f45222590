// Package optimization composes pose-bearing parameter nodes into one flat vector for a least-squares
// solver and describes which Jacobian entries each node can influence.
package optimization

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

// ResidualWidth is the number of residual rows contributed by one observed point (x and y).
const ResidualWidth = 2

// Axis names the observation dimension a pose table is indexed by.
type Axis int

// The observation dimensions, in the order of an ObservationMask's shape.
const (
	AxisCamera Axis = iota
	AxisFrame
	AxisBoard
)

func (a Axis) String() string {
	switch a {
	case AxisCamera:
		return "camera"
	case AxisFrame:
		return "frame"
	case AxisBoard:
		return "board"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ObservationMask marks which (camera, frame, board, point) observations were detected.
type ObservationMask struct {
	Cameras int
	Frames  int
	Boards  int
	Points  int

	valid []bool
}

// NewObservationMask creates a mask from a row-major validity slice over (cameras, frames, boards, points).
func NewObservationMask(cameras, frames, boards, points int, valid []bool) (ObservationMask, error) {
	if cameras < 0 || frames < 0 || boards < 0 || points < 0 {
		return ObservationMask{}, errors.Errorf("observation mask dimensions must be non-negative, got (%d, %d, %d, %d)",
			cameras, frames, boards, points)
	}
	size := cameras * frames * boards * points
	if len(valid) != size {
		return ObservationMask{}, utils.NewShapeMismatchError("observation mask", size, len(valid))
	}
	return ObservationMask{
		Cameras: cameras,
		Frames:  frames,
		Boards:  boards,
		Points:  points,
		valid:   append([]bool(nil), valid...),
	}, nil
}

// FullObservationMask creates a mask where every observation is present.
func FullObservationMask(cameras, frames, boards, points int) ObservationMask {
	return ObservationMask{
		Cameras: cameras,
		Frames:  frames,
		Boards:  boards,
		Points:  points,
		valid:   lo.Times(cameras*frames*boards*points, func(int) bool { return true }),
	}
}

func (m ObservationMask) index(camera, frame, board, point int) int {
	return ((camera*m.Frames+frame)*m.Boards+board)*m.Points + point
}

// Valid reports whether the given observation was detected. Out-of-range coordinates are not.
func (m ObservationMask) Valid(camera, frame, board, point int) bool {
	if camera < 0 || camera >= m.Cameras || frame < 0 || frame >= m.Frames ||
		board < 0 || board >= m.Boards || point < 0 || point >= m.Points {
		return false
	}
	return m.valid[m.index(camera, frame, board, point)]
}

// Count returns the number of detected observations.
func (m ObservationMask) Count() int {
	return lo.Count(m.valid, true)
}

// Size returns the extent of the given axis.
func (m ObservationMask) Size(axis Axis) int {
	switch axis {
	case AxisCamera:
		return m.Cameras
	case AxisFrame:
		return m.Frames
	case AxisBoard:
		return m.Boards
	default:
		return 0
	}
}

// Restrict returns a copy of the mask without the observations whose coordinate along axis indexes an
// entry that is not valid. valid must have one entry per index of the axis.
func (m ObservationMask) Restrict(axis Axis, valid []bool) (ObservationMask, error) {
	if axis < AxisCamera || axis > AxisBoard {
		return ObservationMask{}, errors.Errorf("cannot restrict observations along %v", axis)
	}
	if len(valid) != m.Size(axis) {
		return ObservationMask{}, utils.NewShapeMismatchError(fmt.Sprintf("%v validity", axis), m.Size(axis), len(valid))
	}
	restricted := m
	restricted.valid = append([]bool(nil), m.valid...)
	for c := 0; c < m.Cameras; c++ {
		for f := 0; f < m.Frames; f++ {
			for b := 0; b < m.Boards; b++ {
				if valid[Observation{Camera: c, Frame: f, Board: b}.along(axis)] {
					continue
				}
				start := m.index(c, f, b, 0)
				for p := start; p < start+m.Points; p++ {
					restricted.valid[p] = false
				}
			}
		}
	}
	return restricted, nil
}

// Observation identifies one detected board point.
type Observation struct {
	Camera int
	Frame  int
	Board  int
	Point  int
}

func (o Observation) along(axis Axis) int {
	switch axis {
	case AxisCamera:
		return o.Camera
	case AxisFrame:
		return o.Frame
	case AxisBoard:
		return o.Board
	default:
		return -1
	}
}

// IndexMapper assigns residual rows to observations and parameter columns to pose blocks. It is built
// once per optimization run and never changes afterwards, so it can be shared freely. Scoped copies made
// with Offset share the same observation list.
type IndexMapper struct {
	observations []Observation
	mask         ObservationMask
	offset       int
}

// NewIndexMapper enumerates the detected observations of mask in row-major order; observation k owns
// residual rows [ResidualWidth*k, ResidualWidth*(k+1)).
func NewIndexMapper(mask ObservationMask) IndexMapper {
	observations := make([]Observation, 0, mask.Count())
	for c := 0; c < mask.Cameras; c++ {
		for f := 0; f < mask.Frames; f++ {
			for b := 0; b < mask.Boards; b++ {
				for p := 0; p < mask.Points; p++ {
					if mask.valid[mask.index(c, f, b, p)] {
						observations = append(observations, Observation{c, f, b, p})
					}
				}
			}
		}
	}
	return IndexMapper{observations: observations, mask: mask}
}

// Mask returns the observation mask the mapper was built from.
func (m IndexMapper) Mask() ObservationMask {
	return m.mask
}

// NumObservations returns the number of detected observations.
func (m IndexMapper) NumObservations() int {
	return len(m.observations)
}

// NumResiduals returns the number of Jacobian rows.
func (m IndexMapper) NumResiduals() int {
	return ResidualWidth * len(m.observations)
}

// Observation returns the k-th observation in row order.
func (m IndexMapper) Observation(k int) (Observation, error) {
	if k < 0 || k >= len(m.observations) {
		return Observation{}, utils.NewIndexOutOfRangeError(k, len(m.observations))
	}
	return m.observations[k], nil
}

// Observations returns every observation in row order.
func (m IndexMapper) Observations() []Observation {
	return append([]Observation(nil), m.observations...)
}

// Offset returns a mapper whose parameter columns start n further along the flat vector.
func (m IndexMapper) Offset(n int) IndexMapper {
	m.offset += n
	return m
}

// ColumnOffset returns the first global column of this mapper's scope.
func (m IndexMapper) ColumnOffset() int {
	return m.offset
}

// ParamRange returns the global column range [start, end) of the local-th block of width stride.
func (m IndexMapper) ParamRange(local, stride int) (int, int) {
	start := m.offset + local*stride
	return start, start + stride
}

// PoseMapping returns, for every observation whose axis coordinate indexes a valid entry of table, the
// observation's residual rows paired with the entry's RTVec columns. Invalid entries contribute nothing.
func (m IndexMapper) PoseMapping(table tables.PoseTable, axis Axis) Sparsity {
	return m.BlockMapping(table.Valid(), axis, spatialmath.RTVecSize)
}

// BlockMapping generalizes PoseMapping to entries that own several blocks of stride columns. Entry i owns
// the blocks starting at offset+i*stride for each offset (default 0), all of which influence the same rows.
// Entries beyond len(valid) are treated as absent.
func (m IndexMapper) BlockMapping(valid []bool, axis Axis, stride int, offsets ...int) Sparsity {
	if len(offsets) == 0 {
		offsets = []int{0}
	}
	blocks := make([]Block, 0, len(m.observations))
	for k, obs := range m.observations {
		i := obs.along(axis)
		if i < 0 || i >= len(valid) || !valid[i] {
			continue
		}
		cols := make([]int, 0, stride*len(offsets))
		for _, off := range offsets {
			start, end := m.ParamRange(i, stride)
			for c := start; c < end; c++ {
				cols = append(cols, c+off)
			}
		}
		blocks = append(blocks, Block{Row: ResidualWidth * k, NumRows: ResidualWidth, Cols: cols})
	}
	return Sparsity{blocks: blocks}
}
