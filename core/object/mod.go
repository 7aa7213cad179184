// Package object defines the capabilities an object must provide to be stored
// in the object database, and the schema descriptor that persistence layers
// use to serialize it.
package object

import "go.dedis.ch/objdb/core/identity"

// Identifiable is implemented by values that carry their own identity.
type Identifiable interface {
	GetID() identity.ID
}

// Object is the capability an object type T must implement to be managed by
// a store. The store never exposes the instance it owns, it hands out clones.
type Object[T any] interface {
	Identifiable

	// Validate returns an error if the object breaks one of its invariants.
	Validate() error

	// Clone returns a deep copy of the object.
	Clone() T
}

// FieldKind is the kind of a field in a schema.
type FieldKind string

const (
	// KindIdentity is a field holding an identity.
	KindIdentity FieldKind = "identity"
	// KindUint is an unsigned integer field.
	KindUint FieldKind = "uint"
	// KindInt is a signed integer field.
	KindInt FieldKind = "int"
	// KindString is a text field.
	KindString FieldKind = "string"
	// KindTime is a timestamp field with a second precision.
	KindTime FieldKind = "time"
	// KindExtensions is an open-ended list of extensions.
	KindExtensions FieldKind = "extensions"
)

// Field is the description of one field of a schema.
type Field struct {
	Name     string
	Kind     FieldKind
	Optional bool
}

// Schema describes the fields of an object in their serialization order. The
// identity of the object always comes first and is not part of the list.
type Schema struct {
	Name   string
	Fields []Field
}

// Names returns the names of the fields in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, field := range s.Fields {
		names[i] = field.Name
	}

	return names
}
