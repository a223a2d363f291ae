package arbor

// Uniform binds a shader uniform name to the property that feeds it.
type Uniform struct {
	Name  string
	Input PropertyInput
}

// UniformMap is the ordered set of uniforms an owner contributes to the
// renderers that draw with it. Names are unique within a map.
type UniformMap struct {
	entries []Uniform
	changes uint64
}

// Add maps name to input, replacing any existing mapping of the same name.
func (m *UniformMap) Add(name string, input PropertyInput) {
	m.changes++
	for i := range m.entries {
		if m.entries[i].Name == name {
			m.entries[i].Input = input
			return
		}
	}
	m.entries = append(m.entries, Uniform{Name: name, Input: input})
}

// Remove deletes the mapping for name. Removing an unknown name is a no-op.
func (m *UniformMap) Remove(name string) {
	for i := range m.entries {
		if m.entries[i].Name == name {
			copy(m.entries[i:], m.entries[i+1:])
			m.entries[len(m.entries)-1] = Uniform{}
			m.entries = m.entries[:len(m.entries)-1]
			m.changes++
			return
		}
	}
}

// Find returns the input mapped to name.
func (m *UniformMap) Find(name string) (PropertyInput, bool) {
	for i := range m.entries {
		if m.entries[i].Name == name {
			return m.entries[i].Input, true
		}
	}
	return nil, false
}

// Len returns the number of mappings.
func (m *UniformMap) Len() int { return len(m.entries) }

// Entries returns the mappings in insertion order. The slice must not be
// modified.
func (m *UniformMap) Entries() []Uniform { return m.entries }

// ChangeCount increases on every Add or Remove.
func (m *UniformMap) ChangeCount() uint64 { return m.changes }

// collectUniforms merges maps in precedence order: the first map that defines
// a name wins.
func collectUniforms(dst []Uniform, maps ...*UniformMap) []Uniform {
	dst = dst[:0]
	for _, m := range maps {
		if m == nil {
			continue
		}
	entries:
		for _, u := range m.entries {
			for _, have := range dst {
				if have.Name == u.Name {
					continue entries
				}
			}
			dst = append(dst, u)
		}
	}
	return dst
}
