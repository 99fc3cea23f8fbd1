// Package euphash centralizes the blake3 content hashing used by the
// compiler and the store, so both packages hash sinks, nodes, and
// artifacts the same way without importing each other.
package euphash

import (
	"encoding/base64"
	"errors"

	"lukechampine.com/blake3"
)

var errShortHash = errors.New("euphash: decoded path is not 32 bytes")

// Hash is a 32-byte content hash. Equal hashes mean bit-identical
// artifacts: sinks, nodes, and buffers are all named by Hash.
type Hash [32]byte

// Empty is the hash of the empty byte string. The compiler uses it for a
// buffer that was not loaded; a bare sink hashes to SinkDomainHash.
var Empty = Sum(nil)

// domainTag is XORed into the hash of a sink with no parameter edges and
// no members (a bare sink root), so a silent sink's hash is
// distinguishable from blake3(empty) used elsewhere as a sentinel.
var domainTag = Hash{0xe0, 0x7e, 0x17, 0x70, 0x9e} // "euphony-sink" fingerprint, first bytes only

// Sum hashes a single byte slice in one shot.
func Sum(b []byte) Hash {
	return Hash(blake3.Sum256(b))
}

// Hasher incrementally accumulates bytes into a running blake3 state, the
// primitive used to fold a sink's members, parameter events, and buffer
// references into one hash without materializing an intermediate buffer.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a fresh incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New(32, nil)}
}

// Clone returns an independent copy of the hasher's current state, used
// by the compiler to fork a shared prefix (every member's local hash)
// into a distinct hasher per sink without re-hashing the prefix.
func (h *Hasher) Clone() *Hasher {
	return &Hasher{h: h.h.Clone()}
}

// Update feeds bytes into the hash state.
func (h *Hasher) Update(b []byte) { h.h.Write(b) }

// Finalize returns the accumulated hash. The hasher remains usable
// afterward (blake3 supports repeated Sum calls).
func (h *Hasher) Finalize() Hash {
	var out Hash
	copy(out[:], h.h.Sum(nil))
	return out
}

// SinkDomainHash returns the hash of a sink with no reachable members —
// the boundary case from a bare `SpawnNode{processor: 0}` — defined as
// blake3(empty) XORed with a fixed domain tag so it never collides with
// an unrelated empty-input hash elsewhere in the system.
func SinkDomainHash() Hash {
	out := Empty
	for i := range domainTag {
		out[i] ^= domainTag[i]
	}
	return out
}

// EncodePath renders a hash as the URL-safe, unpadded base64 string used
// to name files in the content-addressed store.
func EncodePath(h Hash) string {
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// DecodePath parses a store filename back into a Hash.
func DecodePath(s string) (Hash, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	var h Hash
	if len(b) != len(h) {
		return Hash{}, errShortHash
	}
	copy(h[:], b)
	return h, nil
}
