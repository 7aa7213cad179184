// Package identity defines the identity of the objects stored in the object
// database and the allocator that hands out new identities.
//
// An identity is the triple (space, type, sequence). The space and the type
// are fixed for a kind of object, and the sequence is a counter that grows for
// each object allocated in the (space, type) pair. Sequences are never reused,
// even when the object is removed or when the allocation is rolled back.
package identity

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

const (
	// ProtocolSpace is the space of the objects created by operations.
	ProtocolSpace uint8 = 1

	// ImplementationSpace is the space of the objects maintained by the chain
	// itself.
	ImplementationSpace uint8 = 2
)

// EncodedLength is the length in bytes of the binary form of an identity.
const EncodedLength = 10

// ID is the identity of an object.
type ID struct {
	Space    uint8
	Type     uint8
	Sequence uint64
}

// Min is the smallest identity.
var Min = ID{}

// New returns the identity of the given components.
func New(space, typ uint8, seq uint64) ID {
	return ID{Space: space, Type: typ, Sequence: seq}
}

// Compare returns -1, 0 or 1 if the identity is respectively smaller, equal or
// greater than the other, in lexicographic order of the triple.
func (id ID) Compare(other ID) int {
	switch {
	case id.Space != other.Space:
		return cmpInt(int(id.Space), int(other.Space))
	case id.Type != other.Type:
		return cmpInt(int(id.Type), int(other.Type))
	case id.Sequence < other.Sequence:
		return -1
	case id.Sequence > other.Sequence:
		return 1
	default:
		return 0
	}
}

// Less returns true when the identity is strictly smaller than the other.
func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

// Is returns true when the identity belongs to the space and type.
func (id ID) Is(space, typ uint8) bool {
	return id.Space == space && id.Type == typ
}

// String returns the dotted representation of the identity.
func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Space, id.Type, id.Sequence)
}

// MarshalBinary returns the fixed-width representation of the identity. The
// byte order of two encoded identities is the same as their order.
func (id ID) MarshalBinary() ([]byte, error) {
	return id.Bytes(), nil
}

// Bytes returns the fixed-width representation of the identity.
func (id ID) Bytes() []byte {
	buffer := make([]byte, EncodedLength)
	buffer[0] = id.Space
	buffer[1] = id.Type
	binary.BigEndian.PutUint64(buffer[2:], id.Sequence)

	return buffer
}

// UnmarshalBinary populates the identity from its fixed-width representation.
func (id *ID) UnmarshalBinary(data []byte) error {
	if len(data) != EncodedLength {
		return xerrors.Errorf("invalid identity length: %d != %d",
			len(data), EncodedLength)
	}

	id.Space = data[0]
	id.Type = data[1]
	id.Sequence = binary.BigEndian.Uint64(data[2:])

	return nil
}

// MarshalText implements encoding.TextMarshaler so that identities are written
// with their dotted form.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// Parse returns the identity of the dotted representation "space.type.seq".
func Parse(text string) (ID, error) {
	parts := strings.Split(text, ".")
	if len(parts) != 3 {
		return ID{}, xerrors.Errorf("malformed identity '%s'", text)
	}

	space, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return ID{}, xerrors.Errorf("invalid space: %v", err)
	}

	typ, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return ID{}, xerrors.Errorf("invalid type: %v", err)
	}

	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ID{}, xerrors.Errorf("invalid sequence: %v", err)
	}

	return New(uint8(space), uint8(typ), seq), nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}

	return 1
}
