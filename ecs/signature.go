package ecs

import (
	"fmt"
	"math/bits"
)

// MaxComponentTypes is the maximum number of component types a registry can hold.
const MaxComponentTypes = 256

// Signature is a fixed-width bitmask encoding which component types an entity
// currently holds. Bit indices are assigned by the ComponentRegistry in
// registration order.
type Signature [4]uint64

// set enables the bit for the given component index.
func (s *Signature) set(bit uint8) {
	s[bit>>6] |= uint64(1) << (bit & 63)
}

// unset disables the bit for the given component index.
func (s *Signature) unset(bit uint8) {
	s[bit>>6] &^= uint64(1) << (bit & 63)
}

// Has reports whether the bit for the given component index is set.
func (s Signature) Has(bit uint8) bool {
	return s[bit>>6]&(uint64(1)<<(bit&63)) != 0
}

// ContainsAll reports whether every bit set in sub is also set in s.
// This is the superset test the query system uses to match entities.
func (s Signature) ContainsAll(sub Signature) bool {
	return s[0]&sub[0] == sub[0] &&
		s[1]&sub[1] == sub[1] &&
		s[2]&sub[2] == sub[2] &&
		s[3]&sub[3] == sub[3]
}

// IsZero reports whether no bits are set.
func (s Signature) IsZero() bool {
	return s[0]|s[1]|s[2]|s[3] == 0
}

// Count returns the number of set bits.
func (s Signature) Count() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1]) +
		bits.OnesCount64(s[2]) + bits.OnesCount64(s[3])
}

// String returns a compact hex representation, useful in logs and test failures.
func (s Signature) String() string {
	return fmt.Sprintf("%016x%016x%016x%016x", s[3], s[2], s[1], s[0])
}

// bits yields every set bit index in ascending order.
func (s Signature) bits(yield func(uint8) bool) {
	for word := 0; word < 4; word++ {
		w := s[word]
		for w != 0 {
			bit := uint8(word<<6 + bits.TrailingZeros64(w))
			if !yield(bit) {
				return
			}
			w &= w - 1
		}
	}
}
