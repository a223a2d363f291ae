package arbor

// DoubleBuffered is a value with one slot per buffer generation. The update
// stage writes the slot of the update buffer while the render stage reads the
// other slot, so neither ever observes a torn value.
type DoubleBuffered[T any] struct {
	value [2]T
}

// NewDoubleBuffered returns a cell with both generations set to v.
func NewDoubleBuffered[T any](v T) DoubleBuffered[T] {
	return DoubleBuffered[T]{value: [2]T{v, v}}
}

// Get returns the value of generation buf.
func (d *DoubleBuffered[T]) Get(buf BufferIndex) T {
	return d.value[buf]
}

// Set replaces the value of generation buf.
func (d *DoubleBuffered[T]) Set(buf BufferIndex, v T) {
	d.value[buf] = v
}

// Ref returns a pointer into generation buf for in-place mutation of large
// values. The pointer must not outlive the current frame.
func (d *DoubleBuffered[T]) Ref(buf BufferIndex) *T {
	return &d.value[buf]
}

// CopyPrevious carries the other generation forward into buf.
func (d *DoubleBuffered[T]) CopyPrevious(buf BufferIndex) {
	d.value[buf] = d.value[buf.Other()]
}

// SetBoth writes v to both generations. Only valid before the owner is
// published to the render stage.
func (d *DoubleBuffered[T]) SetBoth(v T) {
	d.value[0] = v
	d.value[1] = v
}
