package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/rigcal/utils"
)

// RTVecSize is the number of scalars in an RTVec.
const RTVecSize = 6

// RTVec is the minimal encoding of a rigid transform used as optimization variables: an R3 axis-angle
// (axis scaled by the angle in radians) followed by the translation.
type RTVec [RTVecSize]float64

// RTVecFromTransform decomposes a rigid transform into an RTVec. The rotation angle is kept in [0, pi].
// Rotation blocks that are only approximately orthonormal are projected through a normalized
// quaternion, so the result is deterministic but not an exact inverse in that case.
func RTVecFromTransform(rt RigidTransform) RTVec {
	q := rt.Quaternion()
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	t := rt.Translation()

	var r r3.Vector
	if s := v.Norm(); s > 0 {
		theta := 2 * math.Atan2(s, q.Real)
		r = v.Mul(theta / s)
	}
	return RTVec{r.X, r.Y, r.Z, t.X, t.Y, t.Z}
}

// Rotation returns the axis-angle part.
func (v RTVec) Rotation() r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Translation returns the translation part.
func (v RTVec) Translation() r3.Vector {
	return r3.Vector{X: v[3], Y: v[4], Z: v[5]}
}

// Transform exponentiates the axis-angle part and places the translation. A zero rotation maps
// exactly to the identity rotation.
func (v RTVec) Transform() RigidTransform {
	r := v.Rotation()
	q := quat.Exp(quat.Number{Imag: r.X / 2, Jmag: r.Y / 2, Kmag: r.Z / 2})
	return newTransformFromQuat(q, v.Translation())
}

// TransformsToParams encodes each transform as an RTVec and flattens them in order.
func TransformsToParams(transforms []RigidTransform) []float64 {
	params := make([]float64, 0, RTVecSize*len(transforms))
	for _, rt := range transforms {
		v := RTVecFromTransform(rt)
		params = append(params, v[:]...)
	}
	return params
}

// ParamsToTransforms decodes a flat vector of consecutive RTVecs.
func ParamsToTransforms(params []float64) ([]RigidTransform, error) {
	if len(params)%RTVecSize != 0 {
		return nil, errors.Wrapf(utils.ErrShapeMismatch,
			"rtvec params: length %d is not a multiple of %d", len(params), RTVecSize)
	}
	transforms := make([]RigidTransform, len(params)/RTVecSize)
	for i := range transforms {
		var v RTVec
		copy(v[:], params[i*RTVecSize:(i+1)*RTVecSize])
		transforms[i] = v.Transform()
	}
	return transforms, nil
}
