// Package riff parses and re-encodes the generic RIFF chunk container —
// the structure WebP rides on top of. It models a RIFF file as a form
// kind plus an ordered sequence of (kind, data) chunks, grounded on the
// teacher's internal/container FourCC/header-parsing helpers, adapted
// from a pixel-aware WebP demuxer down to the spec's simpler ordered
// chunk list (this module never decodes VP8/VP8L pixel data).
package riff

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deepforge/imgmeta/buffer"
	"github.com/deepforge/imgmeta/stream"
)

// Errors returned by this package, per the MalformedRiff/TooLong
// taxonomy buckets in spec.md §7.
var (
	ErrMalformed = errors.New("riff: malformed container")
	ErrTooLong   = errors.New("riff: outer payload exceeds 2^32-1 bytes")
)

const (
	chunkHeaderSize = 8  // 4-byte kind + 4-byte little-endian length
	riffHeaderSize  = 12 // "RIFF" + length + form kind
)

// Chunk is one inner RIFF chunk: a 4-byte kind and its data. The odd-
// length padding byte is not part of Data and is never stored (spec.md
// §3).
type Chunk struct {
	Kind string
	Data buffer.Bytes
}

// Container is a parsed RIFF file: the 4-byte form kind (e.g. "WEBP")
// plus an ordered sequence of inner chunks.
type Container struct {
	FormKind string
	Chunks   []Chunk
}

// Parse decodes a complete RIFF byte buffer into a Container. Trailing
// data beyond the declared outer length is discarded (spec.md §4.3).
func Parse(data []byte) (*Container, error) {
	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF preamble", ErrMalformed)
	}
	outerLen := binary.LittleEndian.Uint32(data[4:8])
	formKind := string(data[8:12])

	end := riffHeaderSize + int(outerLen) - 4
	if end < riffHeaderSize || end > len(data) {
		return nil, fmt.Errorf("%w: declared outer length runs past end of buffer", ErrMalformed)
	}

	c := &Container{FormKind: formKind}
	pos := riffHeaderSize
	for pos < end {
		if pos+chunkHeaderSize > end {
			return nil, fmt.Errorf("%w: truncated chunk header", ErrMalformed)
		}
		kind := string(data[pos : pos+4])
		length := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		dataStart := pos + chunkHeaderSize
		dataEnd := dataStart + int(length)
		if dataEnd > end {
			return nil, fmt.Errorf("%w: chunk %q overruns declared payload", ErrMalformed, kind)
		}

		c.Chunks = append(c.Chunks, Chunk{Kind: kind, Data: buffer.New(data[dataStart:dataEnd])})

		pos = dataEnd
		if length%2 != 0 {
			pos++ // skip pad byte; it is not part of Data
		}
	}
	return c, nil
}

// Encode produces the byte sequence for c as an ordered set of pieces,
// with the outer length back-patched to match the emitted payload.
func (c *Container) Encode() (stream.Pieces, error) {
	var body stream.Pieces
	var payloadLen uint64 = 4 // form kind
	for _, chunk := range c.Chunks {
		header := make([]byte, chunkHeaderSize)
		copy(header[0:4], chunk.Kind)
		binary.LittleEndian.PutUint32(header[4:8], uint32(chunk.Data.Len()))
		body = append(body, buffer.New(header))
		if chunk.Data.Len() > 0 {
			body = append(body, chunk.Data)
		}
		payloadLen += uint64(chunkHeaderSize) + uint64(chunk.Data.Len())
		if chunk.Data.Len()%2 != 0 {
			body = append(body, buffer.New([]byte{0x00}))
			payloadLen++
		}
	}
	if payloadLen > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: total payload is %d bytes", ErrTooLong, payloadLen)
	}

	header := make([]byte, riffHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(payloadLen))
	copy(header[8:12], c.FormKind)

	pieces := stream.Pieces{buffer.New(header)}
	return append(pieces, body...), nil
}

// InsertChunk inserts chunk at position pos, shifting later chunks back.
func (c *Container) InsertChunk(pos int, chunk Chunk) {
	c.Chunks = append(c.Chunks, Chunk{})
	copy(c.Chunks[pos+1:], c.Chunks[pos:])
	c.Chunks[pos] = chunk
}

// RemoveChunk deletes the chunk at position pos.
func (c *Container) RemoveChunk(pos int) {
	c.Chunks = append(c.Chunks[:pos], c.Chunks[pos+1:]...)
}

// IndexOfKind returns the position of the first chunk of the given
// kind, or -1 if none exists.
func (c *Container) IndexOfKind(kind string) int {
	for i, chunk := range c.Chunks {
		if chunk.Kind == kind {
			return i
		}
	}
	return -1
}
