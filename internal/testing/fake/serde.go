package fake

import (
	"go.dedis.ch/objdb/serde"
)

// ContextEngine is a fake implementation of a context engine.
//
// - implements serde.ContextEngine
type ContextEngine struct {
	Format serde.Format
	err    error
}

// NewContext returns a context that uses the fake format.
func NewContext() serde.Context {
	return serde.NewContext(ContextEngine{Format: "FAKE"})
}

// NewBadContext returns a context that fails to marshal and unmarshal.
func NewBadContext() serde.Context {
	return serde.NewContext(ContextEngine{Format: "FAKE", err: fakeErr})
}

// GetFormat implements serde.ContextEngine.
func (ctx ContextEngine) GetFormat() serde.Format {
	return ctx.Format
}

// Marshal implements serde.ContextEngine.
func (ctx ContextEngine) Marshal(message interface{}) ([]byte, error) {
	return []byte("{}"), ctx.err
}

// Unmarshal implements serde.ContextEngine.
func (ctx ContextEngine) Unmarshal(data []byte, message interface{}) error {
	return ctx.err
}

// Message is a fake implementation of a serde message.
//
// - implements serde.Message
type Message struct {
	Digest []byte
	err    error
}

// NewBadMessage returns a message that fails to serialize.
func NewBadMessage() Message {
	return Message{err: fakeErr}
}

// Serialize implements serde.Message.
func (m Message) Serialize(serde.Context) ([]byte, error) {
	return []byte("{}"), m.err
}

// MessageFactory is a fake implementation of a serde factory.
//
// - implements serde.Factory
type MessageFactory struct {
	err error
}

// NewBadMessageFactory returns a factory that fails to deserialize.
func NewBadMessageFactory() MessageFactory {
	return MessageFactory{err: fakeErr}
}

// Deserialize implements serde.Factory.
func (f MessageFactory) Deserialize(serde.Context, []byte) (serde.Message, error) {
	return Message{}, f.err
}
