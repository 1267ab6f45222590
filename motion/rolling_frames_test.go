package motion

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rigcal/export"
	"go.viam.com/rigcal/optimization"
	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/tables"
	"go.viam.com/rigcal/utils"
)

func TestRollingFramesZeroParams(t *testing.T) {
	rf, err := NewRollingFramesFromTable(tables.Identities(2), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rf.Params(), test.ShouldHaveLength, 24)

	next, err := rf.WithParams(make([]float64, 24))
	test.That(t, err, test.ShouldBeNil)
	rolled := next.(*RollingFrames)
	for _, table := range []tables.PoseTable{rolled.Start(), rolled.End()} {
		for _, p := range table.Poses() {
			test.That(t, p.AlmostEqual(spatialmath.Identity(), 0), test.ShouldBeTrue)
		}
	}
	test.That(t, rolled.Valid(), test.ShouldResemble, []bool{true, true})
	test.That(t, rolled.Names(), test.ShouldResemble, []string{"0", "1"})
}

func TestRollingFramesParamsLayout(t *testing.T) {
	start := []spatialmath.RigidTransform{
		spatialmath.NewTranslation(r3.Vector{X: 1}),
		spatialmath.NewTranslation(r3.Vector{X: 2}),
	}
	end := []spatialmath.RigidTransform{
		spatialmath.NewTranslation(r3.Vector{Y: 1}),
		spatialmath.NewTranslation(r3.Vector{Y: 2}),
	}
	rf, err := NewRollingFrames(start, end, []bool{true, false}, []string{"f0", "f1"})
	test.That(t, err, test.ShouldBeNil)

	params := rf.Params()
	test.That(t, params[3], test.ShouldEqual, 1.)
	test.That(t, params[9], test.ShouldEqual, 2.)
	test.That(t, params[12+4], test.ShouldEqual, 1.)
	test.That(t, params[18+4], test.ShouldEqual, 2.)

	rebuilt, err := rf.WithParams(params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rebuilt.Params(), test.ShouldResemble, params)

	_, err = rf.WithParams(params[:12])
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
	test.That(t, rf.Params(), test.ShouldResemble, params)
}

func TestRollingFramesSparsity(t *testing.T) {
	rf, err := NewRollingFrames(
		tables.Identities(3).Poses(), tables.Identities(3).Poses(), []bool{true, false, true}, nil)
	test.That(t, err, test.ShouldBeNil)

	m := optimization.NewIndexMapper(optimization.FullObservationMask(1, 3, 1, 1))
	s := rf.Sparsity(m, optimization.AxisFrame)
	blocks := s.Blocks()
	test.That(t, blocks, test.ShouldHaveLength, 2)
	// frame 2 depends on its start block [12, 18) and its end block [30, 36)
	test.That(t, blocks[1].Row, test.ShouldEqual, 4)
	test.That(t, blocks[1].Cols, test.ShouldResemble, []int{12, 13, 14, 15, 16, 17, 30, 31, 32, 33, 34, 35})

	cols := s.Indices(optimization.Columns)
	test.That(t, cols, test.ShouldHaveLength, 24)
	for _, c := range cols {
		test.That(t, (c >= 6 && c < 12) || (c >= 24 && c < 30), test.ShouldBeFalse)
	}

	p, err := s.Pattern(m.NumResiduals(), len(rf.Params()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.NNZ(), test.ShouldEqual, 2*2*12)
}

func TestRollingFramesEmpty(t *testing.T) {
	rf, err := NewRollingFramesFromTable(tables.Identities(0), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rf.Len(), test.ShouldEqual, 0)
	test.That(t, rf.Params(), test.ShouldBeEmpty)
	test.That(t, rf.Export(), test.ShouldBeEmpty)

	next, err := rf.WithParams(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, next.Params(), test.ShouldBeEmpty)

	m := optimization.NewIndexMapper(optimization.FullObservationMask(1, 0, 1, 4))
	test.That(t, rf.Sparsity(m, optimization.AxisFrame).Indices(optimization.Columns), test.ShouldBeEmpty)
}

func TestRollingFramesAllInvalid(t *testing.T) {
	table, err := tables.NewPoseTable(tables.Identities(2).Poses(), []bool{false, false})
	test.That(t, err, test.ShouldBeNil)
	rf, err := NewRollingFramesFromTable(table, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rf.Params(), test.ShouldHaveLength, 24)
	test.That(t, rf.Export(), test.ShouldBeEmpty)

	m := optimization.NewIndexMapper(optimization.FullObservationMask(2, 2, 1, 3))
	s := rf.Sparsity(m, optimization.AxisFrame)
	test.That(t, s.Indices(optimization.Columns), test.ShouldBeEmpty)
	test.That(t, s.Indices(optimization.Rows), test.ShouldBeEmpty)
}

func TestRollingFramesImmutable(t *testing.T) {
	rf, err := NewRollingFramesFromTable(tables.Identities(2), nil)
	test.That(t, err, test.ShouldBeNil)
	before := rf.Params()

	v := rf.Params()
	v[3] = 0.5
	v[12+5] = -2
	next, err := rf.WithParams(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, next.Params(), test.ShouldResemble, v)
	test.That(t, rf.Params(), test.ShouldResemble, before)

	v[3] = 9
	test.That(t, next.Params()[3], test.ShouldEqual, 0.5)
	test.That(t, next.(*RollingFrames).Start().Poses()[0].Translation().X, test.ShouldAlmostEqual, 0.5)
	test.That(t, next.(*RollingFrames).End().Poses()[0].Translation().Z, test.ShouldAlmostEqual, -2.)
	test.That(t, rf.Start().Poses()[0].AlmostEqual(spatialmath.Identity(), 0), test.ShouldBeTrue)
}

func TestRollingFramesExport(t *testing.T) {
	start := spatialmath.NewTranslation(r3.Vector{X: 1})
	end := spatialmath.NewTranslation(r3.Vector{X: 2})
	rf, err := NewRollingFrames(
		[]spatialmath.RigidTransform{start, start},
		[]spatialmath.RigidTransform{end, end},
		[]bool{false, true}, []string{"a", "b"})
	test.That(t, err, test.ShouldBeNil)

	exported, ok := rf.Export().(map[string]export.RollingPose)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, exported, test.ShouldHaveLength, 1)
	test.That(t, exported, test.ShouldContainKey, "b")
	test.That(t, exported["b"].Start[0][3], test.ShouldEqual, 1.)
	test.That(t, exported["b"].End[0][3], test.ShouldEqual, 2.)
	test.That(t, exported["b"].End, test.ShouldHaveLength, 4)
}

func TestRollingFramesPoseAt(t *testing.T) {
	start := spatialmath.NewTranslation(r3.Vector{X: 0})
	end := spatialmath.RTVec{0, 0, 0.5, 4, 0, 0}.Transform()
	rf, err := NewRollingFrames([]spatialmath.RigidTransform{start}, []spatialmath.RigidTransform{end}, []bool{true}, nil)
	test.That(t, err, test.ShouldBeNil)

	p, err := rf.PoseAt(0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AlmostEqual(start, 1e-12), test.ShouldBeTrue)
	p, err = rf.PoseAt(0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AlmostEqual(end, 1e-12), test.ShouldBeTrue)
	p, err = rf.PoseAt(0, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AlmostEqual(end, 1e-12), test.ShouldBeTrue)

	p, err = rf.PoseAt(0, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Translation().X, test.ShouldAlmostEqual, 2.)
	test.That(t, spatialmath.RTVecFromTransform(p)[2], test.ShouldAlmostEqual, 0.25)

	_, err = rf.PoseAt(1, 0)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
}

func TestRollingFramesConstruction(t *testing.T) {
	_, err := NewRollingFrames(tables.Identities(2).Poses(), tables.Identities(1).Poses(), []bool{true, true}, nil)
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
	_, err = NewRollingFrames(tables.Identities(2).Poses(), tables.Identities(2).Poses(), []bool{true}, nil)
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
	_, err = NewRollingFrames(tables.Identities(2).Poses(), tables.Identities(2).Poses(), []bool{true, true}, []string{"x", "x"})
	test.That(t, err, test.ShouldNotBeNil)

	source, err := tables.NewPoseTable([]spatialmath.RigidTransform{
		spatialmath.NewTranslation(r3.Vector{Z: 1}),
		spatialmath.NewTranslation(r3.Vector{Z: 2}),
	}, []bool{true, false})
	test.That(t, err, test.ShouldBeNil)
	rf, err := NewRollingFramesFromTable(source, []string{"a", "b"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rf.Valid(), test.ShouldResemble, []bool{true, false})
	test.That(t, rf.Start().Poses(), test.ShouldResemble, rf.End().Poses())
	params := rf.Params()
	test.That(t, params[:12], test.ShouldResemble, params[12:])

	renamed, err := rf.Copy(WithFrameNames([]string{"c", "d"}), WithFrameValid([]bool{true, true}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, renamed.Names(), test.ShouldResemble, []string{"c", "d"})
	test.That(t, rf.Names(), test.ShouldResemble, []string{"a", "b"})
	_, err = rf.Copy(WithFrameValid([]bool{true}))
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
}

func TestExposureTime(t *testing.T) {
	test.That(t, ExposureTime(240, 480), test.ShouldEqual, 0.5)
	test.That(t, ExposureTime(-3, 480), test.ShouldEqual, 0.)
	test.That(t, ExposureTime(500, 480), test.ShouldEqual, 1.)
	test.That(t, ExposureTime(10, 0), test.ShouldEqual, 0.)
}
