package arbor

import "fmt"

type typeProperty struct {
	name string
	def  Value
}

// TypeInfo declares properties shared by every object of a named type. Each
// declared property gets a stable index in the registered range.
type TypeInfo struct {
	name  string
	props []typeProperty
}

// NewTypeInfo creates an empty type declaration.
func NewTypeInfo(name string) *TypeInfo {
	return &TypeInfo{name: name}
}

// Name returns the type name.
func (t *TypeInfo) Name() string { return t.name }

// AddProperty declares a property with a default value and returns its index.
// Panics on a duplicate name or when the registered range is exhausted.
func (t *TypeInfo) AddProperty(name string, def Value) PropertyIndex {
	for _, p := range t.props {
		if p.name == name {
			panic(fmt.Sprintf("arbor: type %q already declares %q", t.name, name))
		}
	}
	idx := PropertyRegistrationStartIndex + PropertyIndex(len(t.props))
	if idx > PropertyRegistrationMaxIndex {
		panic(fmt.Sprintf("arbor: type %q has too many properties", t.name))
	}
	t.props = append(t.props, typeProperty{name: name, def: def})
	return idx
}

// PropertyIndex returns the index of a declared property or
// InvalidPropertyIndex.
func (t *TypeInfo) PropertyIndex(name string) PropertyIndex {
	for i, p := range t.props {
		if p.name == name {
			return PropertyRegistrationStartIndex + PropertyIndex(i)
		}
	}
	return InvalidPropertyIndex
}
