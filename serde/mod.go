// Package serde defines the primitives to serialize and deserialize (serde)
// the objects of the database.
//
// A data type registers a format engine per format it supports. The engine
// translates the object into the message of the format, and the context of
// the format marshals that message.
//
// Documentation Last Review: 15.10.2026
//
package serde

// Format is the identifier of a format.
type Format string

const (
	// FormatJSON is the identifier of the JSON format.
	FormatJSON Format = "JSON"
)

// Message is the interface a data model implements to be serialized.
type Message interface {
	// Serialize returns the data of the message in the format of the context.
	Serialize(ctx Context) ([]byte, error)
}

// Factory is the interface to implement to instantiate a data model from its
// serialized form.
type Factory interface {
	// Deserialize returns the message of the data, or an error if the data is
	// malformed.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface a data type implements for each format it
// supports.
type FormatEngine interface {
	// Encode returns the data of the message.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode returns the message of the data.
	Decode(ctx Context, data []byte) (Message, error)
}
