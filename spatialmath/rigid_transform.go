// Package spatialmath defines spatial mathematical operations
package spatialmath

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// RigidTransform is a 4x4 homogeneous transform made of an orthonormal rotation block and a translation.
// It is a value type; every operation returns a new transform.
type RigidTransform struct {
	m mgl64.Mat4
}

// Identity returns the transform which neither rotates nor translates.
func Identity() RigidTransform {
	return RigidTransform{mgl64.Ident4()}
}

// NewRigidTransform builds a transform from a row-major 3x3 rotation and a translation.
func NewRigidTransform(rotation [3][3]float64, translation r3.Vector) RigidTransform {
	m := mgl64.Ident4()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, rotation[i][j])
		}
	}
	m.Set(0, 3, translation.X)
	m.Set(1, 3, translation.Y)
	m.Set(2, 3, translation.Z)
	return RigidTransform{m}
}

// NewRigidTransformFromRows builds a transform from the rows of a 4x4 homogeneous matrix.
func NewRigidTransformFromRows(rows [][]float64) (RigidTransform, error) {
	if len(rows) != 4 {
		return RigidTransform{}, errors.Errorf("rigid transform needs 4 rows, got %d", len(rows))
	}
	var m mgl64.Mat4
	for i, row := range rows {
		if len(row) != 4 {
			return RigidTransform{}, errors.Errorf("rigid transform row %d needs 4 columns, got %d", i, len(row))
		}
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return RigidTransform{m}, nil
}

// NewTranslation returns a transform that only translates.
func NewTranslation(t r3.Vector) RigidTransform {
	return RigidTransform{mgl64.Translate3D(t.X, t.Y, t.Z)}
}

// newTransformFromQuat places the rotation of the unit quaternion q and the translation t.
func newTransformFromQuat(q quat.Number, t r3.Vector) RigidTransform {
	m := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Mat4()
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	return RigidTransform{m}
}

// At returns the entry at the given row and column.
func (rt RigidTransform) At(row, col int) float64 {
	return rt.m.At(row, col)
}

// Matrix returns the underlying homogeneous matrix.
func (rt RigidTransform) Matrix() mgl64.Mat4 {
	return rt.m
}

// Translation returns the translation part.
func (rt RigidTransform) Translation() r3.Vector {
	return r3.Vector{X: rt.m.At(0, 3), Y: rt.m.At(1, 3), Z: rt.m.At(2, 3)}
}

// Rotation returns the rotation block, row-major.
func (rt RigidTransform) Rotation() [3][3]float64 {
	var r [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = rt.m.At(i, j)
		}
	}
	return r
}

// Quaternion returns the rotation as a unit quaternion with a non-negative real part.
// A rotation block that is only approximately orthonormal yields the normalized quaternion
// closest to what the trace method extracts; a degenerate block yields the identity.
func (rt RigidTransform) Quaternion() quat.Number {
	mq := mgl64.Mat4ToQuat(rt.m)
	q := quat.Number{Real: mq.W, Imag: mq.V[0], Jmag: mq.V[1], Kmag: mq.V[2]}
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return quat.Number{Real: 1}
	}
	q = quat.Scale(1/n, q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}

// Compose returns rt * other, i.e. other is applied first.
func (rt RigidTransform) Compose(other RigidTransform) RigidTransform {
	return RigidTransform{rt.m.Mul4(other.m)}
}

// Inverse returns the inverse transform, using the transpose of the rotation block.
func (rt RigidTransform) Inverse() RigidTransform {
	m := mgl64.Ident4()
	t := rt.Translation()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, rt.m.At(j, i))
		}
		m.Set(i, 3, -(rt.m.At(0, i)*t.X + rt.m.At(1, i)*t.Y + rt.m.At(2, i)*t.Z))
	}
	return RigidTransform{m}
}

// Apply transforms a point.
func (rt RigidTransform) Apply(p r3.Vector) r3.Vector {
	v := rt.m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Rows returns the 4x4 matrix as nested row slices, suitable for serialization.
func (rt RigidTransform) Rows() [][]float64 {
	rows := make([][]float64, 4)
	for i := range rows {
		rows[i] = make([]float64, 4)
		for j := range rows[i] {
			rows[i][j] = rt.m.At(i, j)
		}
	}
	return rows
}

// AlmostEqual reports whether every entry of the two transforms differs by at most tol.
func (rt RigidTransform) AlmostEqual(other RigidTransform, tol float64) bool {
	for i := range rt.m {
		if math.Abs(rt.m[i]-other.m[i]) > tol {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the transform as 4 rows of 4 numbers.
func (rt RigidTransform) MarshalJSON() ([]byte, error) {
	return json.Marshal(rt.Rows())
}

// UnmarshalJSON decodes a transform from 4 rows of 4 numbers.
func (rt *RigidTransform) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	decoded, err := NewRigidTransformFromRows(rows)
	if err != nil {
		return err
	}
	*rt = decoded
	return nil
}
