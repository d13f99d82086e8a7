package sparsetable

// Builder collects a sequence and builds a SparseTable from it.
// A user calls PushBack()s followed by Build().
type Builder[T comparable] struct {
	op   Operator[T]
	vals []T
}

// NewBuilder returns a Builder whose tables aggregate with op.
func NewBuilder[T comparable](op Operator[T]) *Builder[T] {
	return &Builder[T]{op: op}
}

// PushBack appends val to the sequence.
func (b *Builder[T]) PushBack(val T) {
	b.vals = append(b.vals, val)
}

// Len returns the number of values pushed so far.
func (b *Builder[T]) Len() int {
	return len(b.vals)
}

// Build returns a SparseTable over the values pushed so far.
// The builder keeps its values; values pushed afterwards do not affect the returned table.
func (b *Builder[T]) Build(opts ...Option) (*SparseTable[T], error) {
	return New(b.vals, b.op, opts...)
}
