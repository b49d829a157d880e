// Package hashkey provides the hashing primitives used to derive pipeline
// cache keys.
//
// Two layers are provided:
//   - Writer digests the fields of a single state block (xxhash64).
//   - Accumulator folds block digests into a composite key using an
//     order-sensitive avalanche combine, so permuted inputs do not collide
//     trivially the way an XOR or sum would.
package hashkey

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// Absent is the digest of a state block or reference that is not present.
// It is a fixed constant, never the digest of zeroed memory.
const Absent uint64 = 0x8f1bbcdcca62c1d6

// Seed is the initial value of every Accumulator.
const Seed uint64 = 0x243f6a8885a308d3

const (
	golden = 0x9e3779b97f4a7c15
	mulA   = 0xbf58476d1ce4e5b9
	mulB   = 0x94d049bb133111eb
)

// Writer digests the fields of one state block.
//
// The zero value is not ready for use; call NewWriter.
type Writer struct {
	d   xxhash.Digest
	buf [8]byte
}

// NewWriter returns a Writer whose digest starts with the given block tag.
// Distinct tags keep blocks with identical field bytes apart.
func NewWriter(tag uint32) *Writer {
	w := &Writer{}
	w.d.Reset()
	w.Uint32(tag)
	return w
}

// Uint32 writes v in little-endian order.
func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	_, _ = w.d.Write(w.buf[:4]) // xxhash.Digest.Write never fails
}

// Uint64 writes v in little-endian order.
func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:], v)
	_, _ = w.d.Write(w.buf[:])
}

// Int32 writes v as its two's complement bits.
func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v)) //nolint:gosec // bit pattern is what gets hashed
}

// Float32 writes the IEEE-754 bit pattern of v.
func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

// Float64 writes the IEEE-754 bit pattern of v.
func (w *Writer) Float64(v float64) {
	w.Uint64(math.Float64bits(v))
}

// Bool writes a single byte, 1 for true.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf[0] = 1
	} else {
		w.buf[0] = 0
	}
	_, _ = w.d.Write(w.buf[:1])
}

// Len writes a length marker for a variable-length field.
// A zero length is a valid marker and differs from Absent.
func (w *Writer) Len(n int) {
	w.Uint64(uint64(n)) //nolint:gosec // lengths are never negative
}

// String writes the length of s followed by its bytes.
func (w *Writer) String(s string) {
	w.Len(len(s))
	_, _ = w.d.WriteString(s)
}

// Bytes writes the length of b followed by b.
func (w *Writer) Bytes(b []byte) {
	w.Len(len(b))
	_, _ = w.d.Write(b)
}

// Sum returns the digest of everything written so far.
func (w *Writer) Sum() uint64 {
	return w.d.Sum64()
}

// Sum64 hashes a byte slice in one call.
func Sum64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Mix is the splitmix64 finalizer. Every input bit affects every output bit.
func Mix(x uint64) uint64 {
	x ^= x >> 30
	x *= mulA
	x ^= x >> 27
	x *= mulB
	x ^= x >> 31
	return x
}

// Combine folds v into acc. The result depends on the order of the folded
// values: Combine(Combine(s, a), b) != Combine(Combine(s, b), a) in general.
func Combine(acc, v uint64) uint64 {
	acc ^= Mix(v) + golden + (acc << 6) + (acc >> 2)
	return bits.RotateLeft64(acc, 27)*5 + 0x52dce729
}

// Accumulator folds a sequence of digests into one composite hash.
type Accumulator struct {
	acc uint64
	n   uint64
}

// NewAccumulator returns an accumulator starting at Seed.
func NewAccumulator() Accumulator {
	return Accumulator{acc: Seed}
}

// Add folds v into the accumulator.
func (a *Accumulator) Add(v uint64) {
	a.acc = Combine(a.acc, v)
	a.n++
}

// Sum returns the composite hash. The number of folded values is part of
// the result, so a prefix never hashes like the full sequence.
func (a *Accumulator) Sum() uint64 {
	return Mix(a.acc ^ Mix(a.n+golden))
}
