package optimization

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigcal/utils"
)

// Child is one named entry of a Composite.
type Child struct {
	Name string
	Node Parameters
	// Bound children are always mapped along Axis; unbound children inherit the axis given to the parent.
	Bound bool
	Axis  Axis
}

// ChildOf creates an unbound child.
func ChildOf(name string, node Parameters) Child {
	return Child{Name: name, Node: node}
}

// ChildAlong creates a child whose entries are indexed by the given observation axis.
func ChildAlong(name string, node Parameters, axis Axis) Child {
	return Child{Name: name, Node: node, Bound: true, Axis: axis}
}

// Composite is an ordered collection of named Parameters nodes that behaves as a single node. Its
// parameter vector is the concatenation of its children's, in order.
type Composite struct {
	children []Child
	widths   []int

	paramsOnce sync.Once
	params     []float64
}

// NewComposite creates a composite node. Names must be unique and nodes non-nil.
func NewComposite(children ...Child) (*Composite, error) {
	names := lo.Map(children, func(c Child, _ int) string { return c.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return nil, errors.Errorf("duplicate child names %v", dups)
	}
	for _, c := range children {
		if c.Node == nil {
			return nil, errors.Errorf("child %q has no node", c.Name)
		}
	}
	children = append([]Child(nil), children...)
	return &Composite{
		children: children,
		widths:   lo.Map(children, func(c Child, _ int) int { return NumParams(c.Node) }),
	}, nil
}

// CompositeOption replaces part of a Composite in Copy.
type CompositeOption func(*Composite) error

// WithNode replaces the node of the named child. The replacement must have the same width.
func WithNode(name string, node Parameters) CompositeOption {
	return func(c *Composite) error {
		i := c.index(name)
		if i < 0 {
			return errors.Errorf("no child named %q", name)
		}
		if w := NumParams(node); w != c.widths[i] {
			return errors.Wrapf(utils.NewShapeMismatchError("child params", c.widths[i], w), "child %q", name)
		}
		c.children[i].Node = node
		return nil
	}
}

// Copy returns a new Composite with the given children replaced. The receiver is unchanged.
func (c *Composite) Copy(opts ...CompositeOption) (*Composite, error) {
	out := &Composite{
		children: append([]Child(nil), c.children...),
		widths:   c.widths,
	}
	for _, opt := range opts {
		if err := opt(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Composite) index(name string) int {
	_, i, ok := lo.FindIndexOf(c.children, func(ch Child) bool { return ch.Name == name })
	if !ok {
		return -1
	}
	return i
}

// Params concatenates the children's parameter vectors.
func (c *Composite) Params() []float64 {
	c.paramsOnce.Do(func() {
		if c.params != nil {
			return
		}
		c.params = make([]float64, 0, lo.Sum(c.widths))
		for _, ch := range c.children {
			c.params = append(c.params, ch.Node.Params()...)
		}
	})
	return append([]float64(nil), c.params...)
}

// WithParams splits params by child width and rebuilds every child.
func (c *Composite) WithParams(params []float64) (Parameters, error) {
	if want := lo.Sum(c.widths); len(params) != want {
		return nil, utils.NewShapeMismatchError("composite params", want, len(params))
	}
	out := &Composite{
		children: make([]Child, len(c.children)),
		widths:   c.widths,
		params:   append([]float64(nil), params...),
	}
	start := 0
	for i, ch := range c.children {
		end := start + c.widths[i]
		node, err := ch.Node.WithParams(params[start:end])
		if err != nil {
			return nil, errors.Wrapf(err, "child %q", ch.Name)
		}
		ch.Node = node
		out.children[i] = ch
		start = end
	}
	return out, nil
}

// Sparsity merges the children's sparsity, each scoped to its own column range.
func (c *Composite) Sparsity(m IndexMapper, axis Axis) Sparsity {
	var out Sparsity
	start := 0
	for i, ch := range c.children {
		childAxis := axis
		if ch.Bound {
			childAxis = ch.Axis
		}
		out = out.Merge(ch.Node.Sparsity(m.Offset(start), childAxis))
		start += c.widths[i]
	}
	return out
}

// Export returns each child's export keyed by child name.
func (c *Composite) Export() interface{} {
	out := make(map[string]interface{}, len(c.children))
	for _, ch := range c.children {
		out[ch.Name] = ch.Node.Export()
	}
	return out
}

// Node returns the named child's node.
func (c *Composite) Node(name string) (Parameters, bool) {
	i := c.index(name)
	if i < 0 {
		return nil, false
	}
	return c.children[i].Node, true
}

// Names returns the child names in order.
func (c *Composite) Names() []string {
	return lo.Map(c.children, func(ch Child, _ int) string { return ch.Name })
}

// Span returns the column range [start, end) of the named child within this node's parameter vector.
func (c *Composite) Span(name string) (int, int, bool) {
	i := c.index(name)
	if i < 0 {
		return 0, 0, false
	}
	start := lo.Sum(c.widths[:i])
	return start, start + c.widths[i], true
}

// NodeAs returns the named child of c as type T.
func NodeAs[T Parameters](c *Composite, name string) (T, error) {
	var zero T
	node, ok := c.Node(name)
	if !ok {
		return zero, errors.Errorf("no child named %q", name)
	}
	typed, ok := node.(T)
	if !ok {
		return zero, utils.NewUnexpectedTypeError(zero, node)
	}
	return typed, nil
}
