package identity

type kind struct {
	space uint8
	typ   uint8
}

// Allocator hands out the sequences of the identities. It keeps one counter
// per (space, type) pair, starting at zero. The allocator is not safe for
// concurrent use.
type Allocator struct {
	counters map[kind]uint64
}

// NewAllocator returns a new allocator with every counter at zero.
func NewAllocator() *Allocator {
	return &Allocator{
		counters: make(map[kind]uint64),
	}
}

// Next returns the next sequence of the pair and advances its counter.
func (a *Allocator) Next(space, typ uint8) uint64 {
	k := kind{space: space, typ: typ}

	seq := a.counters[k]
	a.counters[k] = seq + 1

	return seq
}

// Peek returns the sequence that the next allocation of the pair would return.
func (a *Allocator) Peek(space, typ uint8) uint64 {
	return a.counters[kind{space: space, typ: typ}]
}

// Observe makes sure the counter of the pair of the identity is past its
// sequence so that it is never allocated again.
func (a *Allocator) Observe(id ID) {
	k := kind{space: id.Space, typ: id.Type}

	if a.counters[k] <= id.Sequence {
		a.counters[k] = id.Sequence + 1
	}
}

// Advance moves the counter of the pair forward to the given sequence. It never
// moves a counter backward.
func (a *Allocator) Advance(space, typ uint8, next uint64) {
	k := kind{space: space, typ: typ}

	if a.counters[k] < next {
		a.counters[k] = next
	}
}

// Reset sets every counter back to zero.
func (a *Allocator) Reset() {
	a.counters = make(map[kind]uint64)
}
