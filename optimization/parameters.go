package optimization

// Parameters is a node in a tree of optimizable quantities. A node can be flattened into a parameter
// vector, rebuilt from one, asked which Jacobian entries its parameters can affect, and exported to a
// serializable form.
//
// Nodes are immutable. WithParams always returns a new node and leaves the receiver untouched, so that
// a solver may evaluate many candidate vectors against the same starting tree.
type Parameters interface {
	// Params returns the flat parameter vector. Its length is fixed for the lifetime of the node.
	Params() []float64

	// WithParams returns a new node of the same kind and shape holding the values in params.
	// The result's Params returns exactly params.
	WithParams(params []float64) (Parameters, error)

	// Sparsity returns the Jacobian entries this node's parameters may influence. Column indices are
	// global: m is scoped so that the node's first parameter sits at m.ColumnOffset(). axis is the
	// observation dimension the node's entries are indexed by.
	Sparsity(m IndexMapper, axis Axis) Sparsity

	// Export returns a serializable representation of the node.
	Export() interface{}
}

// NumParams returns the length of a node's parameter vector.
func NumParams(p Parameters) int {
	return len(p.Params())
}
