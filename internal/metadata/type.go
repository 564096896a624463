package metadata

// Kind classifies a type declaration.
type Kind int

const (
	// KindClass is an ordinary instantiable type.
	KindClass Kind = iota
	// KindAbstract cannot be instantiated directly.
	KindAbstract
	// KindInterface declares operations without implementing them.
	KindInterface
	// KindStatic holds only static operations and is never instantiated.
	KindStatic
	// KindValue is a plain value type, such as a number or a timestamp.
	KindValue
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindAbstract:
		return "abstract"
	case KindInterface:
		return "interface"
	case KindStatic:
		return "static"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Type describes one type declared by a module.
type Type struct {
	Name      string
	Namespace string
	Kind      Kind
	// Synthesized marks types generated by tooling rather than declared by a user,
	// such as anonymous structs or closure holders.
	Synthesized bool
	Base        *Type
	Tags        []Tag
	// Methods lists the operations this type declares, in declaration order.
	Methods []*Method
	// Constructor creates a fresh instance. A nil Constructor means the type
	// has no usable parameterless constructor.
	Constructor func() (any, error)

	resolved  bool
	resolving bool
	allTags   []Tag
}

// FullName returns the namespace-qualified name of the type.
func (t *Type) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// String implements fmt.Stringer.
func (t *Type) String() string {
	return t.FullName()
}

// IsConcrete reports whether the type can be instantiated and was declared by a user.
func (t *Type) IsConcrete() bool {
	return t.Kind == KindClass && !t.Synthesized
}

// IsStatic reports whether the type holds only static operations.
func (t *Type) IsStatic() bool {
	return t.Kind == KindStatic
}

// Has reports whether the type carries a tag of the given kind, declared or inherited.
func (t *Type) Has(kind string) bool {
	return hasTag(t.tags(), kind)
}

// Tag returns the single tag of the given kind. An *AmbiguousTagError is returned
// when more than one is present.
func (t *Type) Tag(kind string) (Tag, bool, error) {
	return singleTag(t.FullName(), t.tags(), kind)
}

// AllTags returns declared tags followed by inherited ones.
func (t *Type) AllTags() []Tag {
	return append([]Tag(nil), t.tags()...)
}

// InstanceMethods returns the public instance operations of the type in
// declaration order. Operations declared by base types follow, unless a more
// derived type declares an operation with the same name.
func (t *Type) InstanceMethods() []*Method {
	t.resolve()

	var methods []*Method
	seen := make(map[string]bool)
	for current := t; current != nil; current = current.Base {
		for _, m := range current.Methods {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			if m.Static || !m.Public() {
				continue
			}
			methods = append(methods, m)
		}
	}
	return methods
}

// Method returns the instance operation with the given name.
func (t *Type) Method(name string) (*Method, bool) {
	for _, m := range t.InstanceMethods() {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// New constructs an instance using the type's parameterless constructor.
func (t *Type) New() (instance any, err error) {
	if t.Constructor == nil {
		return nil, &NoConstructorError{Type: t.FullName()}
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return t.Constructor()
}

func (t *Type) tags() []Tag {
	t.resolve()
	return t.allTags
}

// resolve computes inherited tags for the type and its methods. Cycles in the
// base chain are cut at the point they are detected.
func (t *Type) resolve() {
	if t.resolved || t.resolving {
		return
	}
	t.resolving = true
	defer func() {
		t.resolving = false
		t.resolved = true
	}()

	var inherited []Tag
	if t.Base != nil {
		t.Base.resolve()
		inherited = t.Base.allTags
	}
	t.allTags = mergeTags(t.Tags, inherited)

	for _, m := range t.Methods {
		if m.declaring == nil {
			m.declaring = t
		}
		var inheritedMethodTags []Tag
		if t.Base != nil {
			if baseMethod := t.Base.declared(m.Name); baseMethod != nil {
				inheritedMethodTags = baseMethod.allTags
			}
		}
		m.allTags = mergeTags(m.Tags, inheritedMethodTags)
	}
}

// declared finds the nearest declaration of a method name along the base chain.
func (t *Type) declared(name string) *Method {
	for current := t; current != nil; current = current.Base {
		for _, m := range current.Methods {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

// NoConstructorError is returned when a type without a parameterless constructor
// must be instantiated.
type NoConstructorError struct {
	Type string
}

// Error implements the error interface.
func (e *NoConstructorError) Error() string {
	return "no parameterless constructor defined for type " + e.Type
}
