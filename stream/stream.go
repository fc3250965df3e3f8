// Package stream implements the encoder-side output of every container
// package: an ordered, restartable sequence of byte-buffer pieces whose
// concatenation is the encoded file.
package stream

import (
	"io"

	"github.com/deepforge/imgmeta/buffer"
)

// Pieces is the piecewise result of an Encode call: it holds every piece
// as a buffer.Bytes view, so payload bytes are not copied; concatenating
// it into a single buffer is opt-in via Concat.
type Pieces []buffer.Bytes

// Of is a convenience constructor for building a Pieces value from raw
// byte slices without an intermediate loop at call sites.
func Of(chunks ...[]byte) Pieces {
	p := make(Pieces, len(chunks))
	for i, c := range chunks {
		p[i] = buffer.New(c)
	}
	return p
}

// Len returns the total encoded length without materializing the bytes.
func (p Pieces) Len() int64 {
	var n int64
	for _, piece := range p {
		n += int64(piece.Len())
	}
	return n
}

// Concat materializes the full encoded output as a single buffer.
func (p Pieces) Concat() []byte {
	return buffer.Join([]buffer.Bytes(p))
}

// WriteTo writes every piece to w in order, stopping at the first error.
// It satisfies io.WriterTo.
func (p Pieces) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, piece := range p {
		n, err := w.Write(piece.Bytes())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
