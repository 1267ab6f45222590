package board

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"
)

func TestChessboardPoints(t *testing.T) {
	b := Chessboard{Rows: 2, Cols: 3, SquareSize: 0.5}
	test.That(t, b.Validate("board"), test.ShouldBeNil)
	test.That(t, b.NumPoints(), test.ShouldEqual, 6)
	test.That(t, b.Points(), test.ShouldResemble, []r3.Vector{
		{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0},
		{X: 0, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 1, Y: 0.5},
	})
}

func TestChessboardValidate(t *testing.T) {
	err := Chessboard{}.Validate("boards.0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 3)
	test.That(t, err.Error(), test.ShouldContainSubstring, "boards.0")
}
