// Package board describes the planar calibration targets observed by the rig.
package board

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Chessboard is a planar grid of inner corners in the board's z = 0 plane. Point ids run row-major
// starting at the origin corner.
type Chessboard struct {
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	SquareSize float64 `json:"square_size"`
}

// Validate ensures all parts of the board are valid.
func (b Chessboard) Validate(path string) error {
	var err error
	if b.Rows <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: rows must be positive, got %d", path, b.Rows))
	}
	if b.Cols <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: cols must be positive, got %d", path, b.Cols))
	}
	if b.SquareSize <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: square_size must be positive, got %v", path, b.SquareSize))
	}
	return err
}

// NumPoints returns the number of corners.
func (b Chessboard) NumPoints() int {
	return b.Rows * b.Cols
}

// Point returns corner id in board coordinates.
func (b Chessboard) Point(id int) r3.Vector {
	return r3.Vector{X: float64(id%b.Cols) * b.SquareSize, Y: float64(id/b.Cols) * b.SquareSize}
}

// Points returns every corner in id order.
func (b Chessboard) Points() []r3.Vector {
	out := make([]r3.Vector, b.NumPoints())
	for i := range out {
		out[i] = b.Point(i)
	}
	return out
}
