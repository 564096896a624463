package metadata

// DefaultTargetFramework is reported when a module does not name its own.
const DefaultTargetFramework = "go"

// Module is the unit under test: a named, ordered collection of types.
type Module struct {
	Name            string
	TargetFramework string

	types  []*Type
	byName map[string]*Type
}

// NewModule creates a module from types in declaration order and resolves
// their inherited tags.
func NewModule(name string, types ...*Type) *Module {
	m := &Module{
		Name:            name,
		TargetFramework: DefaultTargetFramework,
		byName:          make(map[string]*Type, len(types)),
	}
	for _, t := range types {
		m.Add(t)
	}
	return m
}

// Add appends a type to the module. A type whose full name is already present is ignored.
func (m *Module) Add(t *Type) {
	if t == nil {
		return
	}
	if _, exists := m.byName[t.FullName()]; exists {
		return
	}
	t.resolve()
	m.types = append(m.types, t)
	m.byName[t.FullName()] = t
}

// Types returns every type in the module, in the order they were added.
func (m *Module) Types() []*Type {
	return append([]*Type(nil), m.types...)
}

// Lookup finds a type by its full name.
func (m *Module) Lookup(fullName string) (*Type, bool) {
	t, ok := m.byName[fullName]
	return t, ok
}

// Location returns the path reported for the module by tooling integrations.
func (m *Module) Location() string {
	return m.Name
}
