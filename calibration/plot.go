package calibration

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/rigcal/optimization"
)

const histogramBins = 32

// SaveErrorHistogram plots the reprojection errors of node as a histogram and saves it to path. The
// image format follows the extension of path, e.g. png, svg or pdf.
func (w *Workspace) SaveErrorHistogram(node optimization.Parameters, path string) error {
	errs, err := w.ReprojectionErrors(node)
	if err != nil {
		return err
	}
	values, err := plotter.CopyValues(plotter.Values(errs))
	if err != nil {
		return errors.Wrap(err, "cannot plot reprojection errors")
	}
	hist, err := plotter.NewHist(values, histogramBins)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "reprojection error"
	p.X.Label.Text = "error (px)"
	p.Y.Label.Text = "observations"
	p.Add(hist)
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "error saving histogram to %q", path)
}
