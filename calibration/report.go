package calibration

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigcal/optimization"
)

// Summary describes a set of reprojection errors in pixels.
type Summary struct {
	Count  int     `json:"count"`
	RMS    float64 `json:"rms"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// NewSummary summarizes errs. No errors gives a zero Summary.
func NewSummary(errs []float64) (Summary, error) {
	if len(errs) == 0 {
		return Summary{}, nil
	}
	data := stats.Float64Data(errs)
	squares := stats.Float64Data(lo.Map(errs, func(e float64, _ int) float64 { return e * e }))
	meanSquare, err := stats.Mean(squares)
	if err != nil {
		return Summary{}, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return Summary{}, err
	}
	p95, err := stats.Percentile(data, 95)
	if err != nil {
		return Summary{}, errors.Wrap(err, "error computing 95th percentile")
	}
	maxErr, err := stats.Max(data)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Count: len(errs), RMS: math.Sqrt(meanSquare), Mean: mean, Median: median, P95: p95, Max: maxErr}, nil
}

// CameraSummary is the Summary of one camera's observations.
type CameraSummary struct {
	Name string `json:"name"`
	Summary
}

// Report is the reprojection error of a parameter tree, overall and per camera.
type Report struct {
	Overall Summary         `json:"overall"`
	Cameras []CameraSummary `json:"cameras"`
}

// Report computes the reprojection error report of node.
func (w *Workspace) Report(node optimization.Parameters) (*Report, error) {
	errs, err := w.ReprojectionErrors(node)
	if err != nil {
		return nil, err
	}
	overall, err := NewSummary(errs)
	if err != nil {
		return nil, err
	}

	names := w.cfg.CameraNames()
	perCamera := make([][]float64, len(names))
	for k, o := range w.mapper.Observations() {
		perCamera[o.Camera] = append(perCamera[o.Camera], errs[k])
	}
	report := &Report{Overall: overall}
	for i, name := range names {
		s, err := NewSummary(perCamera[i])
		if err != nil {
			return nil, errors.Wrapf(err, "camera %q", name)
		}
		report.Cameras = append(report.Cameras, CameraSummary{Name: name, Summary: s})
	}
	return report, nil
}

// String prints out a table with a row per camera and a footer for all cameras combined.
func (r *Report) String() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Camera", "Points", "RMS", "Mean", "Median", "P95", "Max"})
	row := func(name string, s Summary) table.Row {
		return table.Row{
			name, s.Count,
			px(s.RMS), px(s.Mean), px(s.Median), px(s.P95), px(s.Max),
		}
	}
	for _, c := range r.Cameras {
		t.AppendRow(row(c.Name, c.Summary))
	}
	t.AppendFooter(row("all", r.Overall))
	return t.Render()
}

func px(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
