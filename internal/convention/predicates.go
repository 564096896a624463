package convention

import (
	"strings"

	"conventest/internal/metadata"
)

// NameEndsWith matches classes whose name ends with any of the suffixes.
func NameEndsWith(suffixes ...string) ClassPredicate {
	return func(t *metadata.Type) bool {
		for _, suffix := range suffixes {
			if strings.HasSuffix(t.Name, suffix) {
				return true
			}
		}
		return false
	}
}

// InNamespace matches classes declared in one of the namespaces or below them.
func InNamespace(namespaces ...string) ClassPredicate {
	return func(t *metadata.Type) bool {
		for _, ns := range namespaces {
			if t.Namespace == ns || strings.HasPrefix(t.Namespace, ns+".") {
				return true
			}
		}
		return false
	}
}

// ClassHasTag matches classes carrying a tag of the given kind.
func ClassHasTag(kind string) ClassPredicate {
	return func(t *metadata.Type) bool {
		return t.Has(kind)
	}
}

// MethodHasTag matches operations carrying a tag of the given kind.
func MethodHasTag(kind string) MethodPredicate {
	return func(m *metadata.Method) bool {
		return m.Has(kind)
	}
}

// MethodNameNot excludes operations with any of the given names.
func MethodNameNot(names ...string) MethodPredicate {
	return func(m *metadata.Method) bool {
		for _, name := range names {
			if m.Name == name {
				return false
			}
		}
		return true
	}
}

// ByName orders cases by operation name using ordinal comparison.
func ByName(a, b *metadata.Method) int {
	return strings.Compare(a.Name, b.Name)
}

// TagParameters reads argument lists from tags of the given kind on the
// operation. Each tag whose value is a []any supplies one list.
func TagParameters(kind string) ParameterSource {
	return func(m *metadata.Method) [][]any {
		var sets [][]any
		for _, tag := range m.TagsOf(kind) {
			if args, ok := tag.Value.([]any); ok {
				sets = append(sets, args)
			}
		}
		return sets
	}
}
