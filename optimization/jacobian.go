package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigcal/utils"
)

// DefaultStep is the relative forward-difference step used when none is given.
var DefaultStep = math.Sqrt(2.220446049250313e-16)

// ResidualFunc evaluates the residual vector at x. It must not modify x.
type ResidualFunc func(x []float64) ([]float64, error)

// SparseJacobian estimates the Jacobian of f at x by forward differences, evaluating f once per column
// group of p rather than once per column. Entries outside p are zero.
func SparseJacobian(f ResidualFunc, x []float64, p *Pattern, step float64) (*mat.Dense, error) {
	return SparseJacobianAt(f, x, nil, p, step)
}

// SparseJacobianAt is SparseJacobian with the residuals at x already known. A nil r0 evaluates f at x.
func SparseJacobianAt(f ResidualFunc, x, r0 []float64, p *Pattern, step float64) (*mat.Dense, error) {
	rows, cols := p.Dims()
	if len(x) != cols {
		return nil, utils.NewShapeMismatchError("jacobian parameters", cols, len(x))
	}
	if step <= 0 {
		step = DefaultStep
	}
	if r0 == nil {
		var err error
		if r0, err = f(x); err != nil {
			return nil, err
		}
	}
	if len(r0) != rows {
		return nil, utils.NewShapeMismatchError("jacobian residuals", rows, len(r0))
	}
	if rows == 0 || cols == 0 {
		return &mat.Dense{}, nil
	}

	jac := mat.NewDense(rows, cols, nil)
	colRows := p.ColumnRows()
	xp := make([]float64, len(x))
	for _, group := range p.ColumnGroups() {
		copy(xp, x)
		for _, c := range group {
			xp[c] = x[c] + step*math.Max(1, math.Abs(x[c]))
		}
		rp, err := f(xp)
		if err != nil {
			return nil, err
		}
		if len(rp) != rows {
			return nil, utils.NewShapeMismatchError("jacobian residuals", rows, len(rp))
		}
		for _, c := range group {
			h := xp[c] - x[c]
			for _, r := range colRows[c] {
				jac.Set(r, c, (rp[r]-r0[r])/h)
			}
		}
	}
	return jac, nil
}
