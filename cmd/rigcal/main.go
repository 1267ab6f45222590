// Package main is the rigcal command line tool. It refines multi-camera rig poses from board
// detections.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/rigcal/calibration"
	"go.viam.com/rigcal/config"
	"go.viam.com/rigcal/export"
	"go.viam.com/rigcal/logging"
	"go.viam.com/rigcal/utils"
)

const (
	flagConfig    = "config"
	flagOutput    = "output"
	flagHistogram = "histogram"
	flagDebug     = "debug"
	flagLogFile   = "log-file"
)

var logger = logging.NewLogger("rigcal")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := newApp(logger, os.Stdout).RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err)
	}
}

func newApp(logger logging.Logger, out io.Writer) *cli.App {
	var logFile *logging.FileAppender
	configFlag := &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Usage:    "load calibration configuration from `FILE`",
		Required: true,
	}
	return &cli.App{
		Name:   "rigcal",
		Usage:  "calibrate the poses of a multi-camera rig",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			if path := c.String(flagLogFile); path != "" {
				logFile = logging.NewFileAppender(path)
				logger.AddAppender(logFile)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return multierr.Combine(logger.Sync(), logFile.Close())
		},
		Commands: []*cli.Command{
			{
				Name:  "calibrate",
				Usage: "refine the initial estimates against the detections",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Usage:   "write the result to `FILE` instead of stdout",
					},
					&cli.StringFlag{
						Name:  flagHistogram,
						Usage: "plot the final reprojection errors to `FILE` (png, svg or pdf)",
					},
				},
				Action: func(c *cli.Context) error {
					return calibrateAction(c.Context, logger, calibrateArgs{
						configPath:    c.String(flagConfig),
						outputPath:    c.String(flagOutput),
						histogramPath: c.String(flagHistogram),
					}, c.App.Writer)
				},
			},
			{
				Name:  "inspect",
				Usage: "print the size and sparsity of the calibration problem",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					return inspectAction(c.Context, c.String(flagConfig), c.App.Writer)
				},
			},
		},
	}
}

func load(path string) (*calibration.Workspace, error) {
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	return calibration.Load(cfg)
}

type calibrateArgs struct {
	configPath    string
	outputPath    string
	histogramPath string
}

func calibrateAction(ctx context.Context, logger logging.Logger, args calibrateArgs, out io.Writer) error {
	w, err := load(args.configPath)
	if err != nil {
		return err
	}
	result, err := w.Run(ctx, logger)
	if err != nil {
		return errors.Wrap(err, "calibration failed")
	}
	if _, err := fmt.Fprintln(out, result.Final.String()); err != nil {
		return err
	}
	if args.histogramPath != "" {
		if err := w.SaveErrorHistogram(result.Solution, args.histogramPath); err != nil {
			return err
		}
		logger.Infow("wrote reprojection error histogram", "path", args.histogramPath)
	}
	if args.outputPath == "" {
		return export.WriteJSON(out, result.Output())
	}
	if err := utils.WriteJSONFile(args.outputPath, result.Output()); err != nil {
		return err
	}
	logger.Infow("wrote calibration", "path", args.outputPath)
	return nil
}

func inspectAction(ctx context.Context, configPath string, out io.Writer) error {
	w, err := load(configPath)
	if err != nil {
		return err
	}
	problem, err := w.Problem(ctx)
	if err != nil {
		return err
	}
	pattern := problem.Pattern()
	columnRows := pattern.ColumnRows()

	nodes := table.NewWriter()
	nodes.SetStyle(table.StyleLight)
	nodes.AppendHeader(table.Row{"Node", "Columns", "Params", "Observed"})
	for _, name := range w.Root().Names() {
		start, end, _ := w.Root().Span(name)
		observed := 0
		for c := start; c < end; c++ {
			if len(columnRows[c]) > 0 {
				observed++
			}
		}
		nodes.AppendRow(table.Row{name, fmt.Sprintf("[%d, %d)", start, end), end - start, observed})
	}

	rows, cols := pattern.Dims()
	density := 0.
	if rows > 0 && cols > 0 {
		density = float64(pattern.NNZ()) / float64(rows*cols)
	}
	mask := w.Mapper().Mask()
	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"motion model", w.Config().Motion()},
		{"cameras / frames / boards", fmt.Sprintf("%d / %d / %d", mask.Cameras, mask.Frames, mask.Boards)},
		{"board points", w.Board().NumPoints()},
		{"observations", w.Mapper().NumObservations()},
		{"jacobian", fmt.Sprintf("%d x %d", rows, cols)},
		{"nonzeros", fmt.Sprintf("%d (%.2f%%)", pattern.NNZ(), 100*density)},
		{"evaluations per jacobian", len(pattern.ColumnGroups())},
	})

	_, err = fmt.Fprintf(out, "%s\n%s\n", summary.Render(), nodes.Render())
	return err
}
