// Package registry defines the format registry mechanism.
//
// The registry always returns an engine: an unknown format gets an empty engine
// whose functions return an error, so that callers do not need to check the
// existence of the format.
package registry

import (
	"sort"

	"go.dedis.ch/objdb/serde"
	"golang.org/x/xerrors"
)

// Registry is an interface to register and get format engines for a specific
// format.
type Registry interface {
	// Register takes a format and its engine and it registers them so that the
	// engine can be looked up later.
	Register(serde.Format, serde.FormatEngine)

	// Get returns the engine associated with the format.
	Get(serde.Format) serde.FormatEngine
}

// SimpleRegistry is the default implementation of the registry.
//
// - implements registry.Registry
type SimpleRegistry struct {
	engines map[serde.Format]serde.FormatEngine
}

// NewSimpleRegistry returns a new empty registry.
func NewSimpleRegistry() *SimpleRegistry {
	return &SimpleRegistry{
		engines: make(map[serde.Format]serde.FormatEngine),
	}
}

// Register implements registry.Registry. It registers the engine for the
// format, replacing any previous one.
func (r *SimpleRegistry) Register(format serde.Format, engine serde.FormatEngine) {
	r.engines[format] = engine
}

// Get implements registry.Registry. It returns the engine of the format if it
// exists, otherwise an empty engine.
func (r *SimpleRegistry) Get(format serde.Format) serde.FormatEngine {
	engine := r.engines[format]
	if engine == nil {
		return emptyEngine{format: format}
	}

	return engine
}

// Formats returns the registered formats in alphabetical order.
func (r *SimpleRegistry) Formats() []serde.Format {
	formats := make([]serde.Format, 0, len(r.engines))
	for format := range r.engines {
		formats = append(formats, format)
	}

	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })

	return formats
}

// emptyEngine is returned for unknown formats.
//
// - implements serde.FormatEngine
type emptyEngine struct {
	format serde.Format
}

// Encode implements serde.FormatEngine. It always returns an error.
func (e emptyEngine) Encode(serde.Context, serde.Message) ([]byte, error) {
	return nil, xerrors.Errorf("format '%s' is not implemented", e.format)
}

// Decode implements serde.FormatEngine. It always returns an error.
func (e emptyEngine) Decode(serde.Context, []byte) (serde.Message, error) {
	return nil, xerrors.Errorf("format '%s' is not implemented", e.format)
}
