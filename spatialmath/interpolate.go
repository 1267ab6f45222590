package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"
)

// Interpolate returns the transform a fraction t of the way from a to b. Rotations are spherically
// interpolated along the shorter arc and translations linearly; t = 0 gives a and t = 1 gives b.
func Interpolate(a, b RigidTransform, t float64) RigidTransform {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	qa, qb := toMGL(a.Quaternion()), toMGL(b.Quaternion())
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	q := mgl64.QuatSlerp(qa, qb, t).Normalize()

	ta, tb := a.Translation(), b.Translation()
	trans := ta.Add(tb.Sub(ta).Mul(t))
	return newTransformFromQuat(quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}, trans)
}

func toMGL(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}
