package arbor

import (
	"fmt"
	"sync/atomic"
)

// PropertyIndex addresses a property of an owner. The index space is split in
// closed ranges so lookups dispatch on a comparison instead of a virtual call.
type PropertyIndex int32

const (
	InvalidPropertyIndex PropertyIndex = -1

	// DefaultPropertyMaxCount bounds the built-in properties of an owner type.
	DefaultPropertyMaxCount PropertyIndex = 10000

	// Properties declared through a TypeInfo.
	PropertyRegistrationStartIndex PropertyIndex = 10000000
	PropertyRegistrationMaxIndex   PropertyIndex = 19999999

	// Properties added to a single object at run time, allocated in
	// registration order.
	PropertyCustomStartIndex PropertyIndex = 50000000
)

// PropertyOwnerObserver is told about connection changes of an owner whose
// properties it reads or writes.
type PropertyOwnerObserver interface {
	PropertyOwnerConnected(owner *PropertyOwner)
	PropertyOwnerDisconnected(buf BufferIndex, owner *PropertyOwner)
	PropertyOwnerDestroyed(owner *PropertyOwner)
}

var ownerIDCounter atomic.Uint32

func nextOwnerID() uint32 {
	return ownerIDCounter.Add(1)
}

// PropertyOwner holds the properties, constraints and uniform map of a scene
// object. Nodes, renderers, materials, shaders, geometries and cameras all
// embed one.
type PropertyOwner struct {
	id   uint32
	name string

	defaults    []*Property
	registered  []*Property
	custom      []*Property
	customNames map[string]PropertyIndex
	typeInfo    *TypeInfo

	constraints []*Constraint
	uniforms    UniformMap
	observers   []PropertyOwnerObserver

	connected bool
	destroyed bool
	isNode    bool
	tracked   bool // in the update manager's owner list
}

func (o *PropertyOwner) initOwner(name string) {
	o.id = nextOwnerID()
	o.name = name
}

// ID returns the identity of the owner. IDs are unique and increase in
// creation order.
func (o *PropertyOwner) ID() uint32 { return o.id }

// Name returns the debug name of the owner.
func (o *PropertyOwner) Name() string { return o.name }

// addDefault appends a built-in property. Owner constructors call it in
// the order of their index constants.
func (o *PropertyOwner) addDefault(name string, v Value) *Property {
	p := NewProperty(name, v)
	p.index = PropertyIndex(len(o.defaults))
	p.owner = o
	o.defaults = append(o.defaults, p)
	return p
}

// Property returns the property at index, or nil if the owner has none there.
func (o *PropertyOwner) Property(index PropertyIndex) *Property {
	switch {
	case index < 0:
		return nil
	case index < DefaultPropertyMaxCount:
		if int(index) < len(o.defaults) {
			return o.defaults[index]
		}
	case index >= PropertyRegistrationStartIndex && index <= PropertyRegistrationMaxIndex:
		i := int(index - PropertyRegistrationStartIndex)
		if i < len(o.registered) {
			return o.registered[i]
		}
	case index >= PropertyCustomStartIndex:
		i := int(index - PropertyCustomStartIndex)
		if i < len(o.custom) {
			return o.custom[i]
		}
	}
	return nil
}

// PropertyIndex looks a property up by name across all three ranges.
func (o *PropertyOwner) PropertyIndex(name string) PropertyIndex {
	for _, p := range o.defaults {
		if p.name == name {
			return p.index
		}
	}
	for _, p := range o.registered {
		if p.name == name {
			return p.index
		}
	}
	if idx, ok := o.customNames[name]; ok {
		return idx
	}
	return InvalidPropertyIndex
}

// PropertyCount returns the number of properties in all ranges.
func (o *PropertyOwner) PropertyCount() int {
	return len(o.defaults) + len(o.registered) + len(o.custom)
}

// RegisterProperty adds a custom property and returns its index. Registering
// an existing name returns the existing index. Must be called before the owner
// is handed to the core or from a message.
func (o *PropertyOwner) RegisterProperty(name string, v Value) PropertyIndex {
	if idx, ok := o.customNames[name]; ok {
		return idx
	}
	if o.customNames == nil {
		o.customNames = make(map[string]PropertyIndex)
	}
	p := NewProperty(name, v)
	p.index = PropertyCustomStartIndex + PropertyIndex(len(o.custom))
	p.owner = o
	o.custom = append(o.custom, p)
	o.customNames[name] = p.index
	return p.index
}

// setTypeInfo instantiates the type-registered properties of t.
func (o *PropertyOwner) setTypeInfo(t *TypeInfo) {
	if o.typeInfo != nil {
		panic(fmt.Sprintf("arbor: owner %q already has type %q", o.name, o.typeInfo.name))
	}
	o.typeInfo = t
	o.registered = make([]*Property, len(t.props))
	for i, tp := range t.props {
		p := NewProperty(tp.name, tp.def)
		p.index = PropertyRegistrationStartIndex + PropertyIndex(i)
		p.owner = o
		o.registered[i] = p
	}
}

// TypeInfo returns the type the owner was created with, or nil.
func (o *PropertyOwner) TypeInfo() *TypeInfo { return o.typeInfo }

// ResetToBaseValues resets every property range for generation buf.
func (o *PropertyOwner) ResetToBaseValues(buf BufferIndex) {
	for _, p := range o.defaults {
		p.ResetToBaseValue(buf)
	}
	for _, p := range o.registered {
		p.ResetToBaseValue(buf)
	}
	for _, p := range o.custom {
		p.ResetToBaseValue(buf)
	}
}

// UniformMap returns the uniforms this owner contributes to renderers.
func (o *PropertyOwner) UniformMap() *UniformMap { return &o.uniforms }

// Constraints returns the constraints targeting this owner in registration
// order. The slice must not be modified.
func (o *PropertyOwner) Constraints() []*Constraint { return o.constraints }

func (o *PropertyOwner) addConstraint(c *Constraint) {
	o.constraints = append(o.constraints, c)
}

func (o *PropertyOwner) removeConstraint(c *Constraint) {
	for i, x := range o.constraints {
		if x == c {
			copy(o.constraints[i:], o.constraints[i+1:])
			o.constraints[len(o.constraints)-1] = nil
			o.constraints = o.constraints[:len(o.constraints)-1]
			return
		}
	}
}

// AddObserver registers obs for connection notifications. Duplicate
// registrations are ignored.
func (o *PropertyOwner) AddObserver(obs PropertyOwnerObserver) {
	for _, x := range o.observers {
		if x == obs {
			return
		}
	}
	o.observers = append(o.observers, obs)
}

// RemoveObserver unregisters obs.
func (o *PropertyOwner) RemoveObserver(obs PropertyOwnerObserver) {
	for i, x := range o.observers {
		if x == obs {
			copy(o.observers[i:], o.observers[i+1:])
			o.observers[len(o.observers)-1] = nil
			o.observers = o.observers[:len(o.observers)-1]
			return
		}
	}
}

// IsConnected reports whether the owner is part of the rendered scene.
func (o *PropertyOwner) IsConnected() bool { return o.connected }

// IsDestroyed reports whether the owner has been destroyed.
func (o *PropertyOwner) IsDestroyed() bool { return o.destroyed }

func (o *PropertyOwner) connectToScene() {
	if o.connected {
		return
	}
	o.connected = true
	for _, obs := range o.snapshotObservers() {
		obs.PropertyOwnerConnected(o)
	}
}

func (o *PropertyOwner) disconnectFromScene(buf BufferIndex) {
	if !o.connected {
		return
	}
	o.connected = false
	for _, obs := range o.snapshotObservers() {
		obs.PropertyOwnerDisconnected(buf, o)
	}
}

// destroy notifies every observer once and drops them.
func (o *PropertyOwner) destroy() {
	if o.destroyed {
		return
	}
	o.connected = false
	o.destroyed = true
	obs := o.observers
	o.observers = nil
	for _, x := range obs {
		x.PropertyOwnerDestroyed(o)
	}
	o.constraints = nil
}

// snapshotObservers copies the observer list so observers may unregister
// themselves while being notified.
func (o *PropertyOwner) snapshotObservers() []PropertyOwnerObserver {
	if len(o.observers) == 0 {
		return nil
	}
	out := make([]PropertyOwnerObserver, len(o.observers))
	copy(out, o.observers)
	return out
}
