// Package metadata describes the types and operations of a module under test.
//
// Go has no runtime registry of every type declared in a package, so a module is
// described explicitly: each Type carries its kind, its base type, its tags and its
// ordered operations (Methods). Descriptors are either written out by hand or built
// from a Go struct with Reflect.
//
// Tags play the part of custom attributes. Tags declared on a base type, or on a
// same-named method of a base type, are inherited; NewModule resolves the
// inherited set once so later lookups are plain slice scans.
package metadata
