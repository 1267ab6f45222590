package spatialmath

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rigcal/utils"
)

func randomTransform(rnd *rand.Rand) RigidTransform {
	axis := r3.Vector{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}.Normalize()
	theta := rnd.Float64() * math.Pi
	r := axis.Mul(theta)
	return RTVec{r.X, r.Y, r.Z, rnd.NormFloat64() * 100, rnd.NormFloat64() * 100, rnd.NormFloat64() * 100}.Transform()
}

func TestRTVecRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		rt := randomTransform(rnd)
		back := RTVecFromTransform(rt).Transform()
		test.That(t, back.AlmostEqual(rt, 1e-9), test.ShouldBeTrue)
	}

	t.Run("identity", func(t *testing.T) {
		v := RTVecFromTransform(Identity())
		test.That(t, v, test.ShouldResemble, RTVec{})
		test.That(t, RTVec{}.Transform(), test.ShouldResemble, Identity())
	})

	t.Run("small angles", func(t *testing.T) {
		for _, theta := range []float64{1e-3, 1e-7, 1e-12, 1e-300} {
			v := RTVec{theta, 0, 0, 1, 2, 3}
			rt := v.Transform()
			got := RTVecFromTransform(rt)
			test.That(t, got[0], test.ShouldAlmostEqual, theta, 1e-12)
			test.That(t, got[3:], test.ShouldResemble, v[3:])
			test.That(t, got.Transform().AlmostEqual(rt, 1e-12), test.ShouldBeTrue)
		}
	})

	t.Run("half turn", func(t *testing.T) {
		for _, axis := range []r3.Vector{{X: 1}, {Y: 1}, {Z: 1}, r3.Vector{X: 1, Y: 1, Z: 1}.Normalize()} {
			r := axis.Mul(math.Pi)
			rt := RTVec{r.X, r.Y, r.Z, 0, 0, 0}.Transform()
			got := RTVecFromTransform(rt)
			test.That(t, got.Rotation().Norm(), test.ShouldAlmostEqual, math.Pi, 1e-9)
			test.That(t, got.Transform().AlmostEqual(rt, 1e-9), test.ShouldBeTrue)
		}
	})

	t.Run("angle beyond pi maps to an equivalent rotation", func(t *testing.T) {
		r := r3.Vector{Z: 1}.Mul(1.5 * math.Pi)
		rt := RTVec{r.X, r.Y, r.Z, 0, 0, 0}.Transform()
		got := RTVecFromTransform(rt)
		test.That(t, got.Rotation().Norm(), test.ShouldAlmostEqual, 0.5*math.Pi, 1e-9)
		test.That(t, got[2], test.ShouldBeLessThan, 0)
		test.That(t, got.Transform().AlmostEqual(rt, 1e-9), test.ShouldBeTrue)
	})
}

func TestRTVecKnownRotation(t *testing.T) {
	rt := RTVec{0, 0, math.Pi / 2, 1, 0, 0}.Transform()
	p := rt.Apply(r3.Vector{X: 1})
	test.That(t, p.X, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, p.Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0, 1e-12)
}

func TestRTVecNonOrthonormal(t *testing.T) {
	rot := [3][3]float64{
		{1.001, 0.002, 0},
		{-0.002, 0.999, 0.001},
		{0, -0.001, 1.0005},
	}
	rt := NewRigidTransform(rot, r3.Vector{X: 1, Y: 2, Z: 3})
	first := RTVecFromTransform(rt)
	second := RTVecFromTransform(rt)
	test.That(t, first, test.ShouldResemble, second)
	for _, v := range first {
		test.That(t, math.IsNaN(v), test.ShouldBeFalse)
	}

	degenerate := NewRigidTransform([3][3]float64{}, r3.Vector{X: 4})
	got := RTVecFromTransform(degenerate)
	test.That(t, got, test.ShouldResemble, RTVecFromTransform(degenerate))
	test.That(t, got[3:], test.ShouldResemble, []float64{4, 0, 0})
	for _, v := range got {
		test.That(t, math.IsNaN(v), test.ShouldBeFalse)
	}
}

func TestBatchCodec(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	transforms := []RigidTransform{randomTransform(rnd), Identity(), randomTransform(rnd)}
	params := TransformsToParams(transforms)
	test.That(t, params, test.ShouldHaveLength, 18)

	decoded, err := ParamsToTransforms(params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldHaveLength, 3)
	for i := range decoded {
		test.That(t, decoded[i].AlmostEqual(transforms[i], 1e-9), test.ShouldBeTrue)
	}

	test.That(t, TransformsToParams(nil), test.ShouldBeEmpty)
	empty, err := ParamsToTransforms(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeEmpty)

	_, err = ParamsToTransforms(make([]float64, 7))
	test.That(t, errors.Is(err, utils.ErrShapeMismatch), test.ShouldBeTrue)
}

func TestRigidTransformInverse(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		rt := randomTransform(rnd)
		test.That(t, rt.Compose(rt.Inverse()).AlmostEqual(Identity(), 1e-9), test.ShouldBeTrue)
		test.That(t, rt.Inverse().Inverse().AlmostEqual(rt, 1e-9), test.ShouldBeTrue)

		p := r3.Vector{X: rnd.Float64(), Y: rnd.Float64(), Z: rnd.Float64()}
		back := rt.Inverse().Apply(rt.Apply(p))
		test.That(t, back.Sub(p).Norm(), test.ShouldBeLessThan, 1e-9)
	}
}

func TestRigidTransformJSON(t *testing.T) {
	rt := RTVec{0.1, -0.2, 0.3, 4, 5, 6}.Transform()
	data, err := json.Marshal(rt)
	test.That(t, err, test.ShouldBeNil)

	var decoded RigidTransform
	test.That(t, json.Unmarshal(data, &decoded), test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, rt)

	test.That(t, json.Unmarshal([]byte(`[[1,0,0,0],[0,1,0,0]]`), &decoded), test.ShouldNotBeNil)
	test.That(t, json.Unmarshal([]byte(`[[1,0,0],[0,1,0],[0,0,1],[0,0,0]]`), &decoded), test.ShouldNotBeNil)
}

func TestRigidTransformRows(t *testing.T) {
	rt := NewTranslation(r3.Vector{X: 1, Y: 2, Z: 3})
	rows := rt.Rows()
	test.That(t, rows, test.ShouldResemble, [][]float64{
		{1, 0, 0, 1},
		{0, 1, 0, 2},
		{0, 0, 1, 3},
		{0, 0, 0, 1},
	})
	fromRows, err := NewRigidTransformFromRows(rows)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromRows, test.ShouldResemble, rt)
}
