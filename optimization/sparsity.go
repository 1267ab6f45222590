package optimization

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// JacobianAxis selects the rows or the columns of a Jacobian.
type JacobianAxis int

const (
	// Rows refers to residual indices.
	Rows JacobianAxis = iota
	// Columns refers to parameter indices.
	Columns
)

// Block says that residual rows [Row, Row+NumRows) may depend on every parameter column in Cols.
type Block struct {
	Row     int
	NumRows int
	Cols    []int
}

// Sparsity is the set of (residual, parameter) pairs a node may influence, expressed as row blocks in
// global coordinates.
type Sparsity struct {
	blocks []Block
}

// NewSparsity creates a sparsity description from explicit blocks.
func NewSparsity(blocks ...Block) Sparsity {
	return Sparsity{blocks: append([]Block(nil), blocks...)}
}

// Blocks returns the row blocks.
func (s Sparsity) Blocks() []Block {
	return append([]Block(nil), s.blocks...)
}

// Empty reports whether no entry is marked.
func (s Sparsity) Empty() bool {
	return !lo.SomeBy(s.blocks, func(b Block) bool { return b.NumRows > 0 && len(b.Cols) > 0 })
}

// Merge returns the union of s and the others.
func (s Sparsity) Merge(others ...Sparsity) Sparsity {
	out := Sparsity{blocks: append([]Block(nil), s.blocks...)}
	for _, o := range others {
		out.blocks = append(out.blocks, o.blocks...)
	}
	return out
}

// Indices returns the sorted distinct rows or columns touched by any block.
func (s Sparsity) Indices(side JacobianAxis) []int {
	var out []int
	for _, b := range s.blocks {
		if b.NumRows <= 0 || len(b.Cols) == 0 {
			continue
		}
		if side == Rows {
			for r := b.Row; r < b.Row+b.NumRows; r++ {
				out = append(out, r)
			}
		} else {
			out = append(out, b.Cols...)
		}
	}
	out = lo.Uniq(out)
	sort.Ints(out)
	return out
}

// Pattern materializes the sparsity into a row-indexed structure for a Jacobian of the given shape.
func (s Sparsity) Pattern(rows, cols int) (*Pattern, error) {
	p := &Pattern{rows: rows, cols: cols, rowCols: make([][]int, rows)}
	for _, b := range s.blocks {
		for r := b.Row; r < b.Row+b.NumRows; r++ {
			if r < 0 || r >= rows {
				return nil, errors.Errorf("sparsity row %d outside jacobian with %d rows", r, rows)
			}
			for _, c := range b.Cols {
				if c < 0 || c >= cols {
					return nil, errors.Errorf("sparsity column %d outside jacobian with %d columns", c, cols)
				}
				p.rowCols[r] = append(p.rowCols[r], c)
			}
		}
	}
	for r, cs := range p.rowCols {
		cs = lo.Uniq(cs)
		sort.Ints(cs)
		p.rowCols[r] = cs
	}
	return p, nil
}

// Pattern is the boolean structure of a Jacobian, stored as the sorted columns of each row.
type Pattern struct {
	rows, cols int
	rowCols    [][]int
}

// Dims returns the Jacobian shape.
func (p *Pattern) Dims() (int, int) {
	return p.rows, p.cols
}

// NNZ returns the number of marked entries.
func (p *Pattern) NNZ() int {
	return lo.SumBy(p.rowCols, func(cs []int) int { return len(cs) })
}

// Has reports whether entry (r, c) is marked.
func (p *Pattern) Has(r, c int) bool {
	if r < 0 || r >= p.rows {
		return false
	}
	cs := p.rowCols[r]
	i := sort.SearchInts(cs, c)
	return i < len(cs) && cs[i] == c
}

// RowColumns returns the marked columns of row r.
func (p *Pattern) RowColumns(r int) []int {
	return append([]int(nil), p.rowCols[r]...)
}

// ColumnRows returns, for every column, the marked rows of that column.
func (p *Pattern) ColumnRows() [][]int {
	out := make([][]int, p.cols)
	for r, cs := range p.rowCols {
		for _, c := range cs {
			out[c] = append(out[c], r)
		}
	}
	return out
}

// Dense returns a 0/1 matrix of the pattern.
func (p *Pattern) Dense() *mat.Dense {
	if p.rows == 0 || p.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(p.rows, p.cols, nil)
	for r, cs := range p.rowCols {
		for _, c := range cs {
			d.Set(r, c, 1)
		}
	}
	return d
}

// ColumnGroups partitions the marked columns into groups that share no row, so that each group can be
// perturbed together when estimating the Jacobian. Columns with no marked row belong to no group.
func (p *Pattern) ColumnGroups() [][]int {
	var (
		groups [][]int
		used   [][]bool
	)
	for c, rs := range p.ColumnRows() {
		if len(rs) == 0 {
			continue
		}
		placed := false
		for g := range groups {
			if lo.SomeBy(rs, func(r int) bool { return used[g][r] }) {
				continue
			}
			groups[g] = append(groups[g], c)
			for _, r := range rs {
				used[g][r] = true
			}
			placed = true
			break
		}
		if placed {
			continue
		}
		rowsUsed := make([]bool, p.rows)
		for _, r := range rs {
			rowsUsed[r] = true
		}
		groups = append(groups, []int{c})
		used = append(used, rowsUsed)
	}
	return groups
}
