package optimization

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Objective computes the residual vector for a parameter tree.
type Objective func(node Parameters) ([]float64, error)

// Problem ties a parameter tree, its sparsity pattern and an objective together for a solver. The
// pattern is computed once, when the problem is created.
type Problem struct {
	root      Parameters
	mapper    IndexMapper
	pattern   *Pattern
	objective Objective
	step      float64

	mu  sync.Mutex
	err error
}

// ProblemOption configures a Problem.
type ProblemOption func(*Problem)

// WithStep sets the finite difference step of the Jacobian. Non-positive steps keep DefaultStep.
func WithStep(step float64) ProblemOption {
	return func(p *Problem) {
		if step > 0 {
			p.step = step
		}
	}
}

// NewProblem builds the Jacobian pattern of root under m, with root's entries indexed along axis.
func NewProblem(root Parameters, m IndexMapper, axis Axis, objective Objective, opts ...ProblemOption) (*Problem, error) {
	if root == nil {
		return nil, errors.New("problem needs a parameter tree")
	}
	if objective == nil {
		return nil, errors.New("problem needs an objective")
	}
	pattern, err := root.Sparsity(m, axis).Pattern(m.NumResiduals(), NumParams(root))
	if err != nil {
		return nil, errors.Wrap(err, "error building jacobian pattern")
	}
	p := &Problem{root: root, mapper: m, pattern: pattern, objective: objective, step: DefaultStep}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Root returns the starting parameter tree.
func (p *Problem) Root() Parameters {
	return p.root
}

// Pattern returns the Jacobian sparsity pattern.
func (p *Problem) Pattern() *Pattern {
	return p.pattern
}

// Mapper returns the index mapper the pattern was built with.
func (p *Problem) Mapper() IndexMapper {
	return p.mapper
}

// Initial returns the starting parameter vector.
func (p *Problem) Initial() []float64 {
	return p.root.Params()
}

// Solution rebuilds the parameter tree from x.
func (p *Problem) Solution(x []float64) (Parameters, error) {
	return p.root.WithParams(x)
}

// Residuals evaluates the objective at x.
func (p *Problem) Residuals(x []float64) ([]float64, error) {
	node, err := p.root.WithParams(x)
	if err != nil {
		return nil, err
	}
	res, err := p.objective(node)
	if err != nil {
		return nil, err
	}
	if rows, _ := p.pattern.Dims(); len(res) != rows {
		return nil, errors.Errorf("objective returned %d residuals, expected %d", len(res), rows)
	}
	return res, nil
}

// Jacobian estimates the sparse Jacobian of the residuals at x.
func (p *Problem) Jacobian(x []float64) (*mat.Dense, error) {
	return SparseJacobian(p.Residuals, x, p.pattern, p.step)
}

// Cost returns half the squared norm of the residuals at x.
func (p *Problem) Cost(x []float64) (float64, error) {
	res, err := p.Residuals(x)
	if err != nil {
		return 0, err
	}
	return 0.5 * floats.Dot(res, res), nil
}

// Gradient stores J^T r at x in grad.
func (p *Problem) Gradient(grad, x []float64) error {
	res, err := p.Residuals(x)
	if err != nil {
		return err
	}
	jac, err := SparseJacobianAt(p.Residuals, x, res, p.pattern, p.step)
	if err != nil {
		return err
	}
	for i := range grad {
		grad[i] = 0
	}
	if len(res) == 0 || len(grad) == 0 {
		return nil
	}
	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(jac.T(), mat.NewVecDense(len(res), res))
	return nil
}

// Err returns the first error encountered by the functions returned from Optimize.
func (p *Problem) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Problem) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// Optimize adapts the problem to gonum's optimize package. Evaluation errors stop the run through Status
// and are available from Err afterwards.
func (p *Problem) Optimize() optimize.Problem {
	return optimize.Problem{
		Func: func(x []float64) float64 {
			cost, err := p.Cost(x)
			if err != nil {
				p.setErr(err)
				return math.Inf(1)
			}
			return cost
		},
		Grad: func(grad, x []float64) {
			if err := p.Gradient(grad, x); err != nil {
				p.setErr(err)
			}
		},
		Status: func() (optimize.Status, error) {
			if err := p.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
}
