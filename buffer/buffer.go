// Package buffer provides the zero-copy byte-range primitive shared by
// every container package in this module. Parsing a JPEG, PNG, or RIFF
// file never copies segment/chunk payloads out of the input buffer; it
// only slices into it.
package buffer

// Bytes is an immutable view over a byte range. Slicing a Bytes is O(1)
// and shares the original backing array: the Go runtime keeps that array
// alive for as long as any Bytes still references it, which is exactly
// the "refcounted immutable byte range" spec.md's data model calls for —
// without a hand-rolled atomic counter duplicating what the garbage
// collector already does for free.
//
// The zero value is an empty, valid Bytes.
type Bytes struct {
	b []byte
}

// New wraps data without copying it. Callers must not mutate data after
// passing it to New, since the resulting Bytes — and any Bytes produced
// by slicing it — borrows the same backing array.
func New(data []byte) Bytes {
	return Bytes{b: data}
}

// Len returns the number of bytes in the view.
func (b Bytes) Len() int { return len(b.b) }

// Bytes returns the borrowed byte slice. Callers must treat it as
// read-only; mutating it corrupts every other Bytes sharing the backing
// array.
func (b Bytes) Bytes() []byte { return b.b }

// At returns the byte at index i.
func (b Bytes) At(i int) byte { return b.b[i] }

// Slice returns the sub-range [lo:hi), sharing the backing array.
func (b Bytes) Slice(lo, hi int) Bytes {
	return Bytes{b: b.b[lo:hi]}
}

// Clone returns an owned copy of the view's bytes, severing any sharing
// with the original input. Use this only when a payload must outlive or
// be mutated independently of the buffer it was parsed from.
func (b Bytes) Clone() []byte {
	c := make([]byte, len(b.b))
	copy(c, b.b)
	return c
}

// Equal reports whether two views hold identical byte content.
func (b Bytes) Equal(o Bytes) bool {
	if len(b.b) != len(o.b) {
		return false
	}
	for i := range b.b {
		if b.b[i] != o.b[i] {
			return false
		}
	}
	return true
}

// Join concatenates a sequence of views into a single owned buffer. When
// pieces contains exactly one element, its bytes are cloned directly
// with no intermediate accumulator.
func Join(pieces []Bytes) []byte {
	if len(pieces) == 1 {
		return pieces[0].Clone()
	}
	total := 0
	for _, p := range pieces {
		total += p.Len()
	}
	out := make([]byte, 0, total)
	for _, p := range pieces {
		out = append(out, p.b...)
	}
	return out
}
