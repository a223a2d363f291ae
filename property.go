package arbor

import "fmt"

// Dirty states of an animatable property. A property that was Set this frame
// needs two resets (one per generation) before both slots hold the base value
// again; a baked property needs one.
const (
	propertyClean uint8 = 0
	propertyBaked uint8 = 1
	propertySet   uint8 = 2
)

// PropertyInput is anything a constraint can read: animatable properties and
// the world values derived during node update.
type PropertyInput interface {
	// Kind returns the value kind of the input.
	Kind() Kind
	// Input returns the value of generation buf.
	Input(buf BufferIndex) Value
	// InputChanged reports whether the input changed in the current frame.
	InputChanged() bool
	// InputOwner returns the owner the input belongs to, or nil.
	InputOwner() *PropertyOwner
}

// Property is an animatable, double-buffered value with a persistent base.
// Set changes the current frame only; Bake also replaces the base so the value
// survives the reset at the start of the next frames.
type Property struct {
	value [2]Value
	base  Value
	dirty uint8

	name  string
	index PropertyIndex
	owner *PropertyOwner
}

// NewProperty creates a property whose base and both generations hold v.
func NewProperty(name string, v Value) *Property {
	return &Property{value: [2]Value{v, v}, base: v, name: name}
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// Index returns the index within the owner.
func (p *Property) Index() PropertyIndex { return p.index }

// Kind returns the value kind, fixed at creation.
func (p *Property) Kind() Kind { return p.base.kind }

// InputOwner returns the owning object, or nil for a free property.
func (p *Property) InputOwner() *PropertyOwner { return p.owner }

// Get returns the value of generation buf.
func (p *Property) Get(buf BufferIndex) Value {
	return p.value[buf]
}

// Input implements PropertyInput.
func (p *Property) Input(buf BufferIndex) Value {
	return p.value[buf]
}

// InputChanged implements PropertyInput.
func (p *Property) InputChanged() bool {
	return p.dirty != propertyClean
}

// Base returns the persistent value the property resets to.
func (p *Property) Base() Value {
	return p.base
}

// IsClean reports whether both generations already equal the base.
func (p *Property) IsClean() bool {
	return p.dirty == propertyClean
}

func (p *Property) checkKind(v Value) {
	if v.kind != p.base.kind {
		panic(fmt.Sprintf("arbor: property %q is %s, cannot assign %s", p.name, p.base.kind, v.kind))
	}
}

// Set replaces the value of generation buf for this frame only.
func (p *Property) Set(buf BufferIndex, v Value) {
	p.checkKind(v)
	p.value[buf] = v
	p.dirty = propertySet
}

// SetRelative adds delta to the value of generation buf for this frame only.
func (p *Property) SetRelative(buf BufferIndex, delta Value) {
	p.Set(buf, Add(p.value[buf], delta))
}

// Bake replaces both the value of generation buf and the base.
func (p *Property) Bake(buf BufferIndex, v Value) {
	p.checkKind(v)
	p.value[buf] = v
	p.base = v
	p.dirty = propertyBaked
}

// BakeRelative adds delta to the value of generation buf and bakes the result.
func (p *Property) BakeRelative(buf BufferIndex, delta Value) {
	p.Bake(buf, Add(p.value[buf], delta))
}

// CopyPrevious carries the other generation forward into buf.
func (p *Property) CopyPrevious(buf BufferIndex) {
	p.value[buf] = p.value[buf.Other()]
}

// ResetToBaseValue restores generation buf from the base. Called at the start
// of every update frame before messages run.
func (p *Property) ResetToBaseValue(buf BufferIndex) {
	if p.dirty == propertyClean {
		return
	}
	p.value[buf] = p.base
	p.dirty >>= 1
}

// worldInput exposes a value derived during node update as a constraint input.
type worldInput struct {
	node *Node
	kind Kind
	get  func(n *Node, buf BufferIndex) Value
}

// Kind implements PropertyInput.
func (w *worldInput) Kind() Kind { return w.kind }

// Input implements PropertyInput.
func (w *worldInput) Input(buf BufferIndex) Value { return w.get(w.node, buf) }

// InputOwner implements PropertyInput.
func (w *worldInput) InputOwner() *PropertyOwner { return &w.node.PropertyOwner }

// InputChanged implements PropertyInput. World values change whenever the
// node moved this frame.
func (w *worldInput) InputChanged() bool {
	return w.node.dirtyFlags&(TransformFlag|ColorFlag|VisibleFlag) != 0
}
