// Package config defines the JSON configuration of a calibration run.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rigcal/board"
	"go.viam.com/rigcal/camera"
	"go.viam.com/rigcal/motion"
	"go.viam.com/rigcal/utils"
)

// The optimizer methods a run can use.
const (
	MethodLBFGS           = "lbfgs"
	MethodBFGS            = "bfgs"
	MethodGradientDescent = "gradient-descent"
)

// Optimizer defaults.
const (
	DefaultMaxIterations     = 200
	DefaultGradientThreshold = 1e-9
	DefaultFunctionTolerance = 1e-12
)

// A Config describes one calibration run.
type Config struct {
	// Detections and InitialEstimates are JSON files. Relative paths are resolved against the
	// directory of the config file by Read.
	Detections       string `json:"detections"`
	InitialEstimates string `json:"initial_estimates"`

	Board              board.Chessboard `json:"board"`
	Cameras            []CameraConfig   `json:"cameras"`
	MotionModel        motion.Kind      `json:"motion_model,omitempty"`
	OptimizeIntrinsics bool             `json:"optimize_intrinsics,omitempty"`
	FixFirstBoard      *bool            `json:"fix_first_board,omitempty"`

	// Optimizer holds optimizer settings, decoded into an OptimizerConfig.
	Optimizer map[string]interface{} `json:"optimizer,omitempty"`
}

// CameraConfig names a camera and gives its intrinsics.
type CameraConfig struct {
	Name  string                    `json:"name"`
	Model camera.PinholeCameraModel `json:"model"`
}

// OptimizerConfig tunes the solver. Zero values take the package defaults.
type OptimizerConfig struct {
	Method            string  `json:"method"`
	MaxIterations     int     `json:"max_iterations"`
	GradientThreshold float64 `json:"gradient_threshold"`
	FunctionTolerance float64 `json:"function_tolerance"`
	// Step is the finite difference step; zero uses the optimization package default.
	Step float64 `json:"step"`
}

// Read loads and validates the config at path.
func Read(path string) (*Config, error) {
	var cfg Config
	if err := utils.ReadJSONFile(path, &cfg); err != nil {
		return nil, errors.Wrap(err, "error reading config")
	}
	dir := filepath.Dir(path)
	cfg.Detections = resolve(dir, cfg.Detections)
	cfg.InitialEstimates = resolve(dir, cfg.InitialEstimates)
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Validate ensures all parts of the config are valid. Every problem found is reported.
func (cfg *Config) Validate(path string) error {
	var err error
	if cfg.Detections == "" {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "detections"))
	}
	if cfg.InitialEstimates == "" {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "initial_estimates"))
	}
	err = multierr.Append(err, cfg.Board.Validate(fmt.Sprintf("%s.board", path)))

	if len(cfg.Cameras) == 0 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "cameras"))
	}
	for idx, cam := range cfg.Cameras {
		err = multierr.Append(err, cam.Validate(fmt.Sprintf("%s.cameras.%d", path, idx)))
	}
	if dups := lo.FindDuplicates(cfg.CameraNames()); len(dups) > 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("duplicate camera names %v", dups)))
	}

	switch cfg.MotionModel {
	case "", motion.Static, motion.Rolling:
	default:
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("unknown motion_model %q", cfg.MotionModel)))
	}

	if _, optErr := cfg.OptimizerConfig(); optErr != nil {
		err = multierr.Append(err, goutils.NewConfigValidationError(fmt.Sprintf("%s.optimizer", path), optErr))
	}
	return err
}

// Validate ensures the camera is named and its intrinsics are usable.
func (cc *CameraConfig) Validate(path string) error {
	if cc.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if err := cc.Model.CheckValid(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// CameraNames returns the camera names in config order.
func (cfg *Config) CameraNames() []string {
	return lo.Map(cfg.Cameras, func(cc CameraConfig, _ int) string { return cc.Name })
}

// CameraModels returns the camera intrinsics in config order.
func (cfg *Config) CameraModels() []camera.PinholeCameraModel {
	return lo.Map(cfg.Cameras, func(cc CameraConfig, _ int) camera.PinholeCameraModel { return cc.Model })
}

// Motion returns the configured motion model kind.
func (cfg *Config) Motion() motion.Kind {
	if cfg.MotionModel == "" {
		return motion.Static
	}
	return cfg.MotionModel
}

// FixesFirstBoard reports whether board 0 is held constant. It is unless disabled.
func (cfg *Config) FixesFirstBoard() bool {
	return cfg.FixFirstBoard == nil || *cfg.FixFirstBoard
}

// OptimizerConfig decodes the optimizer attributes and fills in defaults. Values are weakly typed, so
// "100" is accepted for an integer.
func (cfg *Config) OptimizerConfig() (*OptimizerConfig, error) {
	var out OptimizerConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg.Optimizer); err != nil {
		return nil, errors.Wrap(err, "error decoding optimizer attributes")
	}

	if out.Method == "" {
		out.Method = MethodLBFGS
	}
	switch out.Method {
	case MethodLBFGS, MethodBFGS, MethodGradientDescent:
	default:
		return nil, errors.Errorf("unknown method %q", out.Method)
	}
	if out.MaxIterations < 0 || out.GradientThreshold < 0 || out.FunctionTolerance < 0 || out.Step < 0 {
		return nil, errors.New("optimizer settings must not be negative")
	}
	if out.MaxIterations == 0 {
		out.MaxIterations = DefaultMaxIterations
	}
	if out.GradientThreshold == 0 {
		out.GradientThreshold = DefaultGradientThreshold
	}
	if out.FunctionTolerance == 0 {
		out.FunctionTolerance = DefaultFunctionTolerance
	}
	return &out, nil
}
