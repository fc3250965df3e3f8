// Package png parses and re-encodes the PNG chunk container — the
// outer structure of signature + ordered chunks, not the pixel data any
// individual chunk may encode. It models a PNG file as an ordered
// sequence of chunks and lets callers inspect, insert, remove, or
// replace them, including the conventional iCCP (compressed ICC
// profile) and eXIf chunks.
package png

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/deepforge/imgmeta/buffer"
	"github.com/deepforge/imgmeta/stream"
)

// Signature is the fixed 8-byte PNG file signature (spec.md §3).
var Signature = [8]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// Chunk kinds this package gives special treatment; all others are kept
// verbatim and uninterpreted.
const (
	KindIHDR = "IHDR"
	KindIEND = "IEND"
	KindICCP = "iCCP"
	KindEXIF = "eXIf"
)

// Errors returned by this package, per the MalformedPng/TooLong/
// InflateError taxonomy buckets in spec.md §7.
var (
	ErrMalformed    = errors.New("png: malformed container")
	ErrTooLong      = errors.New("png: chunk data exceeds 2^31-1 bytes")
	ErrInflateError = errors.New("png: iCCP decompression failed")
)

// maxChunkLen is the largest PNG length field value: signed-positive
// 32-bit (spec.md §3).
const maxChunkLen = 1<<31 - 1

// Chunk is one PNG chunk: a 4-byte kind and its data. CRCValid records
// whether the stored CRC matched on parse; it is purely informational —
// encoding always recomputes a fresh CRC (spec.md §7, §9 Open Questions).
type Chunk struct {
	Kind     string
	Data     buffer.Bytes
	CRCValid bool
}

// Container is a parsed PNG file: the fixed signature plus an ordered
// sequence of chunks, from IHDR through IEND. Any bytes following IEND
// in the source are discarded on parse (spec.md §3).
type Container struct {
	Chunks []Chunk
}

// Parse decodes a complete PNG byte buffer into a Container.
func Parse(data []byte) (*Container, error) {
	if len(data) < 8 || [8]byte(data[:8]) != Signature {
		return nil, fmt.Errorf("%w: bad signature", ErrMalformed)
	}

	c := &Container{}
	pos := 8
	sawIHDR := false
	for {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated chunk header", ErrMalformed)
		}
		length := binary.BigEndian.Uint32(data[pos : pos+4])
		kind := string(data[pos+4 : pos+8])
		dataStart := pos + 8
		dataEnd := dataStart + int(length)
		if length > maxChunkLen || dataEnd+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated or oversized %q chunk", ErrMalformed, kind)
		}

		chunkData := data[dataStart:dataEnd]
		storedCRC := binary.BigEndian.Uint32(data[dataEnd : dataEnd+4])
		computedCRC := crcOf(kind, chunkData)

		if !sawIHDR && kind != KindIHDR {
			return nil, fmt.Errorf("%w: first chunk is %q, want IHDR", ErrMalformed, kind)
		}
		sawIHDR = true

		c.Chunks = append(c.Chunks, Chunk{
			Kind:     kind,
			Data:     buffer.New(chunkData),
			CRCValid: storedCRC == computedCRC,
		})

		pos = dataEnd + 4
		if kind == KindIEND {
			return c, nil // trailing bytes after IEND are discarded
		}
	}
}

// crcOf computes the PNG CRC-32 (IEEE) over kind || data.
func crcOf(kind string, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write([]byte(kind))
	h.Write(data)
	return h.Sum32()
}

// Encode produces the byte sequence for c as an ordered set of pieces,
// with a freshly computed CRC for every chunk.
func (c *Container) Encode() (stream.Pieces, error) {
	pieces := stream.Pieces{buffer.New(Signature[:])}
	for _, chunk := range c.Chunks {
		if chunk.Data.Len() > maxChunkLen {
			return nil, fmt.Errorf("%w: chunk %q has %d data bytes", ErrTooLong, chunk.Kind, chunk.Data.Len())
		}
		header := make([]byte, 8)
		binary.BigEndian.PutUint32(header[0:4], uint32(chunk.Data.Len()))
		copy(header[4:8], chunk.Kind)
		pieces = append(pieces, buffer.New(header))
		if chunk.Data.Len() > 0 {
			pieces = append(pieces, chunk.Data)
		}
		footer := make([]byte, 4)
		binary.BigEndian.PutUint32(footer, crcOf(chunk.Kind, chunk.Data.Bytes()))
		pieces = append(pieces, buffer.New(footer))
	}
	return pieces, nil
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

// indexOfKind returns the position of the first chunk of the given kind,
// or -1 if none exists.
func (c *Container) indexOfKind(kind string) int {
	for i, chunk := range c.Chunks {
		if chunk.Kind == kind {
			return i
		}
	}
	return -1
}
