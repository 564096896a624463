package metadata

import "fmt"

// Tag is a piece of metadata attached to a type or a method, identified by its Kind.
type Tag struct {
	Kind  string
	Value any
}

// NewTag creates a tag without a value.
func NewTag(kind string) Tag {
	return Tag{Kind: kind}
}

// AmbiguousTagError is returned by single-use tag lookups that find more than one match.
type AmbiguousTagError struct {
	Kind  string
	Owner string
	Count int
}

// Error implements the error interface.
func (e *AmbiguousTagError) Error() string {
	return fmt.Sprintf("Multiple tags of the same kind found. (kind=%s, owner=%s, count=%d)", e.Kind, e.Owner, e.Count)
}

// hasTag reports whether tags contains a tag of the given kind.
func hasTag(tags []Tag, kind string) bool {
	for _, tag := range tags {
		if tag.Kind == kind {
			return true
		}
	}
	return false
}

// singleTag returns the only tag of the given kind.
func singleTag(owner string, tags []Tag, kind string) (Tag, bool, error) {
	var found []Tag
	for _, tag := range tags {
		if tag.Kind == kind {
			found = append(found, tag)
		}
	}

	switch len(found) {
	case 0:
		return Tag{}, false, nil
	case 1:
		return found[0], true, nil
	default:
		return Tag{}, false, &AmbiguousTagError{Kind: kind, Owner: owner, Count: len(found)}
	}
}

// mergeTags returns declared followed by inherited as a new slice.
func mergeTags(declared, inherited []Tag) []Tag {
	merged := make([]Tag, 0, len(declared)+len(inherited))
	merged = append(merged, declared...)
	merged = append(merged, inherited...)
	return merged
}
