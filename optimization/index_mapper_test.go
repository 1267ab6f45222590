package optimization

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

func span(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

func TestObservationMask(t *testing.T) {
	_, err := NewObservationMask(1, 2, 1, 2, []bool{true})
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)

	_, err = NewObservationMask(-1, 2, 1, 2, nil)
	test.That(t, err, test.ShouldNotBeNil)

	mask, err := NewObservationMask(1, 2, 1, 2, []bool{true, false, false, true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Count(), test.ShouldEqual, 2)
	test.That(t, mask.Valid(0, 0, 0, 0), test.ShouldBeTrue)
	test.That(t, mask.Valid(0, 0, 0, 1), test.ShouldBeFalse)
	test.That(t, mask.Valid(0, 1, 0, 1), test.ShouldBeTrue)
	test.That(t, mask.Valid(0, 2, 0, 0), test.ShouldBeFalse)
	test.That(t, mask.Size(AxisFrame), test.ShouldEqual, 2)
	test.That(t, mask.Size(AxisBoard), test.ShouldEqual, 1)

	test.That(t, AxisCamera.String(), test.ShouldEqual, "camera")
	test.That(t, Axis(7).String(), test.ShouldEqual, "axis(7)")
}

func TestObservationMaskRestrict(t *testing.T) {
	mask := FullObservationMask(2, 3, 2, 2)

	withoutFrame, err := mask.Restrict(AxisFrame, []bool{true, false, true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, withoutFrame.Count(), test.ShouldEqual, 2*2*2*2)
	test.That(t, withoutFrame.Valid(1, 1, 1, 1), test.ShouldBeFalse)
	test.That(t, withoutFrame.Valid(1, 2, 1, 1), test.ShouldBeTrue)
	test.That(t, mask.Count(), test.ShouldEqual, 2*3*2*2)

	withoutBoard, err := withoutFrame.Restrict(AxisBoard, []bool{false, true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, withoutBoard.Count(), test.ShouldEqual, 2*2*1*2)
	test.That(t, withoutBoard.Valid(0, 0, 0, 0), test.ShouldBeFalse)
	test.That(t, withoutBoard.Valid(0, 0, 1, 0), test.ShouldBeTrue)

	none, err := withoutBoard.Restrict(AxisCamera, []bool{false, false})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none.Count(), test.ShouldEqual, 0)
	test.That(t, NewIndexMapper(none).NumResiduals(), test.ShouldEqual, 0)

	_, err = mask.Restrict(AxisCamera, []bool{true})
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
	_, err = mask.Restrict(Axis(7), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIndexMapperRows(t *testing.T) {
	mask, err := NewObservationMask(2, 2, 1, 1, []bool{true, false, true, true})
	test.That(t, err, test.ShouldBeNil)
	m := NewIndexMapper(mask)

	test.That(t, m.NumObservations(), test.ShouldEqual, 3)
	test.That(t, m.NumResiduals(), test.ShouldEqual, 6)
	test.That(t, m.Observations(), test.ShouldResemble, []Observation{
		{Camera: 0, Frame: 0},
		{Camera: 1, Frame: 0},
		{Camera: 1, Frame: 1},
	})

	obs, err := m.Observation(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obs.Frame, test.ShouldEqual, 1)
	_, err = m.Observation(3)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
}

func TestPoseMappingExcludesInvalid(t *testing.T) {
	m := NewIndexMapper(FullObservationMask(1, 3, 1, 1))
	table, err := tables.NewPoseTable(tables.Identities(3).Poses(), []bool{true, false, true})
	test.That(t, err, test.ShouldBeNil)

	s := m.PoseMapping(table, AxisFrame)
	test.That(t, s.Indices(Columns), test.ShouldResemble, append(span(0, 6), span(12, 18)...))
	test.That(t, s.Indices(Rows), test.ShouldResemble, []int{0, 1, 4, 5})

	// the same table indexed by camera only sees camera 0
	s = m.PoseMapping(table, AxisCamera)
	test.That(t, s.Indices(Columns), test.ShouldResemble, span(0, 6))
	test.That(t, s.Indices(Rows), test.ShouldResemble, span(0, 6))

	test.That(t, m.PoseMapping(table, AxisFrame), test.ShouldResemble, m.PoseMapping(table, AxisFrame))
}

func TestPoseMappingEmpty(t *testing.T) {
	m := NewIndexMapper(FullObservationMask(1, 2, 1, 1))
	table, err := tables.NewPoseTable(tables.Identities(2).Poses(), []bool{false, false})
	test.That(t, err, test.ShouldBeNil)
	s := m.PoseMapping(table, AxisFrame)
	test.That(t, s.Empty(), test.ShouldBeTrue)
	test.That(t, s.Indices(Columns), test.ShouldBeEmpty)

	empty := NewIndexMapper(FullObservationMask(0, 0, 0, 0))
	test.That(t, empty.NumResiduals(), test.ShouldEqual, 0)
	test.That(t, empty.PoseMapping(tables.Identities(2), AxisFrame).Empty(), test.ShouldBeTrue)
}

func TestIndexMapperOffset(t *testing.T) {
	m := NewIndexMapper(FullObservationMask(1, 2, 1, 1))
	scoped := m.Offset(10)
	test.That(t, scoped.ColumnOffset(), test.ShouldEqual, 10)
	test.That(t, m.ColumnOffset(), test.ShouldEqual, 0)
	test.That(t, scoped.Offset(5).ColumnOffset(), test.ShouldEqual, 15)

	start, end := scoped.ParamRange(1, 6)
	test.That(t, start, test.ShouldEqual, 16)
	test.That(t, end, test.ShouldEqual, 22)

	s := scoped.PoseMapping(tables.Identities(2), AxisFrame)
	test.That(t, s.Indices(Columns), test.ShouldResemble, span(10, 22))
}

func TestBlockMapping(t *testing.T) {
	m := NewIndexMapper(FullObservationMask(1, 2, 1, 1))
	s := m.BlockMapping([]bool{false, true}, AxisFrame, 6, 0, 12)
	blocks := s.Blocks()
	test.That(t, blocks, test.ShouldHaveLength, 1)
	test.That(t, blocks[0].Row, test.ShouldEqual, 2)
	test.That(t, blocks[0].NumRows, test.ShouldEqual, 2)
	test.That(t, blocks[0].Cols, test.ShouldResemble, append(span(6, 12), span(18, 24)...))

	// entries beyond the mask are absent
	s = m.BlockMapping([]bool{true}, AxisFrame, 9)
	test.That(t, s.Indices(Columns), test.ShouldResemble, span(0, 9))
	test.That(t, s.Indices(Rows), test.ShouldResemble, []int{0, 1})
}
