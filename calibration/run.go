package calibration

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/rigcal/config"
	"go.viam.com/rigcal/logging"
	"go.viam.com/rigcal/optimization"
)

// convergeIterations is how many major iterations the cost may stall for before the run stops.
const convergeIterations = 10

// Result is the outcome of a calibration run.
type Result struct {
	Solution    *optimization.Composite
	Initial     *Report
	Final       *Report
	Status      optimize.Status
	Iterations  int
	Evaluations int
	Runtime     time.Duration
}

// Output is the serialized form of a Result.
type Output struct {
	Status      string      `json:"status"`
	Iterations  int         `json:"iterations"`
	Evaluations int         `json:"evaluations"`
	Initial     *Report     `json:"initial_error"`
	Final       *Report     `json:"final_error"`
	Parameters  interface{} `json:"parameters"`
}

// Output returns the result in its serialized form.
func (r *Result) Output() Output {
	return Output{
		Status:      r.Status.String(),
		Iterations:  r.Iterations,
		Evaluations: r.Evaluations,
		Initial:     r.Initial,
		Final:       r.Final,
		Parameters:  r.Solution.Export(),
	}
}

// Problem builds the least-squares problem of the workspace. Residual evaluation stops once ctx is done.
func (w *Workspace) Problem(ctx context.Context) (*optimization.Problem, error) {
	opt, err := w.cfg.OptimizerConfig()
	if err != nil {
		return nil, err
	}
	objective := func(node optimization.Parameters) ([]float64, error) {
		return w.residuals(ctx, node)
	}
	// every child is bound to its own axis, so the root axis is unused
	return optimization.NewProblem(w.root, w.mapper, optimization.AxisCamera, objective, optimization.WithStep(opt.Step))
}

// Run minimizes the squared reprojection error starting from the initial estimates.
func (w *Workspace) Run(ctx context.Context, logger logging.Logger) (*Result, error) {
	opt, err := w.cfg.OptimizerConfig()
	if err != nil {
		return nil, err
	}
	problem, err := w.Problem(ctx)
	if err != nil {
		return nil, err
	}
	initial, err := w.Report(w.root)
	if err != nil {
		return nil, err
	}

	rows, cols := problem.Pattern().Dims()
	mask := w.mapper.Mask()
	logger.Infow("starting calibration",
		"cameras", mask.Cameras,
		"frames", mask.Frames,
		"boards", mask.Boards,
		"observations", w.mapper.NumObservations(),
		"residuals", rows,
		"parameters", cols,
		"nonzeros", problem.Pattern().NNZ(),
		"motion_model", w.cfg.Motion(),
		"method", opt.Method,
	)
	logger.Infow("initial reprojection error", "rms", initial.Overall.RMS, "max", initial.Overall.Max)

	result := &Result{Solution: w.root, Initial: initial, Final: initial, Status: optimize.NotTerminated}
	if problem.Pattern().NNZ() == 0 {
		logger.Warn("no free parameters are observed; nothing to optimize")
		return result, nil
	}

	settings := &optimize.Settings{
		GradientThreshold: opt.GradientThreshold,
		Converger:         &optimize.FunctionConverge{Absolute: opt.FunctionTolerance, Iterations: convergeIterations},
		MajorIterations:   opt.MaxIterations,
		Recorder:          &logRecorder{ctx: ctx, logger: logger},
	}
	res, err := optimize.Minimize(problem.Optimize(), problem.Initial(), settings, method(opt.Method))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if problemErr := problem.Err(); problemErr != nil {
		return nil, errors.Wrap(problemErr, "error evaluating reprojection error")
	}
	if resErr := checkOptimizerResult(res, err, logger); resErr != nil {
		return nil, resErr
	}

	x := res.X
	if math.IsInf(res.F, 1) {
		x = problem.Initial()
	}
	node, err := problem.Solution(x)
	if err != nil {
		return nil, err
	}
	solution, ok := node.(*optimization.Composite)
	if !ok {
		return nil, errors.Errorf("unexpected solution type %T", node)
	}
	final, err := w.Report(solution)
	if err != nil {
		return nil, err
	}

	result.Solution = solution
	result.Final = final
	result.Status = res.Status
	result.Iterations = res.MajorIterations
	result.Evaluations = res.FuncEvaluations
	result.Runtime = res.Runtime
	logger.Infow("calibration finished",
		"status", res.Status.String(),
		"iterations", res.MajorIterations,
		"evaluations", res.FuncEvaluations,
		"runtime", res.Runtime.String(),
		"rms", final.Overall.RMS,
	)
	return result, nil
}

func method(name string) optimize.Method {
	switch name {
	case config.MethodBFGS:
		return &optimize.BFGS{}
	case config.MethodGradientDescent:
		return &optimize.GradientDescent{}
	default:
		return &optimize.LBFGS{}
	}
}

// logRecorder logs major iterations and stops the run once its context is done.
type logRecorder struct {
	ctx    context.Context
	logger logging.Logger
}

func (r *logRecorder) Init() error {
	return r.ctx.Err()
}

func (r *logRecorder) Record(loc *optimize.Location, op optimize.Operation, s *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if op&optimize.MajorIteration != 0 {
		r.logger.CDebugw(r.ctx, "iteration",
			"iteration", s.MajorIterations,
			"cost", loc.F,
			"evaluations", s.FuncEvaluations,
		)
	}
	return nil
}

// checkOptimizerResult fails when the optimizer produced no result. An error alongside a result only means
// the optimizer stopped early, and the result is still usable.
func checkOptimizerResult(res *optimize.Result, err error, logger logging.Logger) error {
	if res == nil {
		if err == nil {
			err = errors.New("optimizer returned no result")
		}
		return errors.Wrap(err, "error running optimizer")
	}
	if err != nil {
		logger.Warnw("optimizer stopped early", "error", err)
	}
	return nil
}
