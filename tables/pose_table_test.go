package tables

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rigcal/spatialmath"
	"go.viam.com/rigcal/utils"
)

func translations(xs ...float64) []spatialmath.RigidTransform {
	out := make([]spatialmath.RigidTransform, len(xs))
	for i, x := range xs {
		out[i] = spatialmath.NewTranslation(r3.Vector{X: x})
	}
	return out
}

func TestNewPoseTable(t *testing.T) {
	pt, err := NewPoseTable(translations(1, 2, 3), []bool{true, false, true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pt.Len(), test.ShouldEqual, 3)
	test.That(t, pt.ValidCount(), test.ShouldEqual, 2)
	test.That(t, pt.Valid(), test.ShouldResemble, []bool{true, false, true})

	_, err = NewPoseTable(translations(1, 2), []bool{true})
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)

	empty, err := NewPoseTable(nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Len(), test.ShouldEqual, 0)
	test.That(t, empty.ValidCount(), test.ShouldEqual, 0)
}

func TestPoseTableCopiesInputs(t *testing.T) {
	poses := translations(1, 2)
	valid := []bool{true, true}
	pt, err := NewPoseTable(poses, valid)
	test.That(t, err, test.ShouldBeNil)

	poses[0] = spatialmath.Identity()
	valid[1] = false
	p, v, err := pt.Pose(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldBeTrue)
	test.That(t, p.Translation().X, test.ShouldEqual, 1.)
	test.That(t, pt.Valid(), test.ShouldResemble, []bool{true, true})

	out := pt.Poses()
	out[1] = spatialmath.Identity()
	p, _, err = pt.Pose(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Translation().X, test.ShouldEqual, 2.)
}

func TestPoseTableBounds(t *testing.T) {
	pt := Identities(2)
	_, _, err := pt.Pose(2)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	_, _, err = pt.Pose(-1)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
}

func TestPoseTableInverse(t *testing.T) {
	poses := []spatialmath.RigidTransform{
		spatialmath.RTVec{0.3, -0.1, 0.2, 1, 2, 3}.Transform(),
		spatialmath.RTVec{0, 1, 0, -4, 0, 0}.Transform(),
	}
	pt, err := NewPoseTable(poses, []bool{true, false})
	test.That(t, err, test.ShouldBeNil)

	inv := pt.Inverse()
	test.That(t, inv.Valid(), test.ShouldResemble, []bool{true, false})
	for i, p := range inv.Inverse().Poses() {
		test.That(t, p.AlmostEqual(poses[i], 1e-12), test.ShouldBeTrue)
	}
	for i, p := range inv.Poses() {
		test.That(t, p.Compose(poses[i]).AlmostEqual(spatialmath.Identity(), 1e-12), test.ShouldBeTrue)
	}
}

func TestWithPoses(t *testing.T) {
	a, err := NewPoseTable(translations(1, 2), []bool{false, true})
	test.That(t, err, test.ShouldBeNil)

	updated, err := a.WithPoses(translations(5, 6))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, updated.Valid(), test.ShouldResemble, []bool{false, true})
	p, _, _ := a.Pose(0)
	test.That(t, p.Translation().X, test.ShouldEqual, 1.)

	_, err = a.WithPoses(translations(5))
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)

	masked, err := a.WithValid([]bool{true, true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, masked.ValidCount(), test.ShouldEqual, 2)
}

func TestNames(t *testing.T) {
	test.That(t, DefaultNames(3), test.ShouldResemble, []string{"0", "1", "2"})
	test.That(t, DefaultNames(0), test.ShouldBeEmpty)

	test.That(t, CheckNames([]string{"a", "b"}, 2), test.ShouldBeNil)
	err := CheckNames([]string{"a"}, 2)
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
	err = CheckNames([]string{"a", "a"}, 2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")
}
