// Package jpeg parses and re-encodes the JPEG marker-segment container —
// the structure that carries pixel data, not the pixel data itself. It
// models a JPEG file as an ordered sequence of segments and lets callers
// inspect, insert, remove, or replace them, including the conventional
// multi-segment APP2/ICC_PROFILE and APP1/EXIF payloads.
//
// Entropy-coded scan data is carried alongside its Start-of-Scan segment
// as an opaque tail and is never interpreted.
package jpeg

import (
	"errors"
	"fmt"

	"github.com/deepforge/imgmeta/buffer"
	"github.com/deepforge/imgmeta/stream"
)

// Marker identifies a JPEG segment kind. The 0xFF prefix byte that
// precedes every marker on the wire is implicit and never stored.
type Marker byte

// Marker values relevant to container parsing. Frame/scan/quantization
// markers are recognized only so their segments round-trip; their
// contents are never interpreted.
const (
	TEM  Marker = 0x01 // lone fill marker, no length field
	SOF0 Marker = 0xC0
	SOF1 Marker = 0xC1
	SOF2 Marker = 0xC2
	SOF3 Marker = 0xC3
	DHT  Marker = 0xC4
	SOF5 Marker = 0xC5
	SOF6 Marker = 0xC6
	SOF7 Marker = 0xC7
	SOF9 Marker = 0xC9
	SOF10 Marker = 0xCA
	SOF11 Marker = 0xCB
	SOF13 Marker = 0xCD
	SOF14 Marker = 0xCE
	SOF15 Marker = 0xCF
	RST0 Marker = 0xD0
	RST1 Marker = 0xD1
	RST2 Marker = 0xD2
	RST3 Marker = 0xD3
	RST4 Marker = 0xD4
	RST5 Marker = 0xD5
	RST6 Marker = 0xD6
	RST7 Marker = 0xD7
	SOI  Marker = 0xD8
	EOI  Marker = 0xD9
	SOS  Marker = 0xDA
	DQT  Marker = 0xDB
	DNL  Marker = 0xDC
	DRI  Marker = 0xDD
	DHP  Marker = 0xDE
	APP0 Marker = 0xE0
	APP1 Marker = 0xE1
	APP2 Marker = 0xE2
	APP13 Marker = 0xED
	APP14 Marker = 0xEE
	APP15 Marker = 0xEF
	COM  Marker = 0xFE
)

// IsRestart reports whether m is one of RST0..RST7.
func (m Marker) IsRestart() bool { return m >= RST0 && m <= RST7 }

// hasLength reports whether m carries a 2-byte length field and content,
// as opposed to the length-less markers (SOI, EOI, TEM, restart markers).
func (m Marker) hasLength() bool {
	return !(m == SOI || m == EOI || m == TEM || m.IsRestart())
}

// Errors returned by this package, per the MalformedJpeg/TooLong taxonomy
// buckets in spec.md §7.
var (
	ErrMalformed = errors.New("jpeg: malformed container")
	ErrTooLong   = errors.New("jpeg: segment exceeds 16-bit length field")
)

// Segment is one marker segment: a marker byte, its content bytes (empty
// for length-less markers), and — for the Start-of-Scan segment only —
// the entropy-coded scan bytes that follow it.
type Segment struct {
	Marker      Marker
	Contents    buffer.Bytes
	EntropyTail buffer.Bytes // non-empty only when Marker == SOS
}

// Container is a parsed JPEG file: an ordered sequence of segments
// beginning with SOI and ending with EOI.
type Container struct {
	Segments []Segment
}

// Parse decodes a complete JPEG byte buffer into a Container. The
// returned Container's segment Contents/EntropyTail views share data's
// backing array; data must not be mutated afterward.
func Parse(data []byte) (*Container, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != byte(SOI) {
		return nil, fmt.Errorf("%w: missing SOI", ErrMalformed)
	}

	c := &Container{}
	c.Segments = append(c.Segments, Segment{Marker: SOI})

	pos := 2
	for {
		// Skip fill bytes: a marker is one or more 0xFF followed by a
		// non-0xFF, non-0x00 byte.
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: truncated before marker", ErrMalformed)
		}
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("%w: expected marker lead 0xFF at offset %d", ErrMalformed, pos)
		}
		pos++
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: truncated mid-marker", ErrMalformed)
		}
		m := Marker(data[pos])
		pos++

		if m == EOI {
			c.Segments = append(c.Segments, Segment{Marker: EOI})
			return c, nil
		}
		if !m.hasLength() {
			// Length-less markers can legally appear outside a scan too
			// (TEM as a fill marker); treat them uniformly.
			c.Segments = append(c.Segments, Segment{Marker: m})
			continue
		}

		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated length field for marker 0x%02X", ErrMalformed, m)
		}
		length := int(data[pos])<<8 | int(data[pos+1])
		if length < 2 {
			return nil, fmt.Errorf("%w: impossible length %d for marker 0x%02X", ErrMalformed, length, m)
		}
		contentLen := length - 2
		contentStart := pos + 2
		if contentStart+contentLen > len(data) {
			return nil, fmt.Errorf("%w: segment content runs past end of buffer", ErrMalformed)
		}
		contents := buffer.New(data[contentStart : contentStart+contentLen])
		pos = contentStart + contentLen

		if m != SOS {
			c.Segments = append(c.Segments, Segment{Marker: m, Contents: contents})
			continue
		}

		// Start-of-Scan: the entropy-coded segment follows immediately.
		// Scan until a non-stuffed, non-restart marker.
		tailEnd, newPos, err := scanEntropyTail(data, pos)
		if err != nil {
			return nil, err
		}
		tail := buffer.New(data[pos:tailEnd])
		c.Segments = append(c.Segments, Segment{Marker: SOS, Contents: contents, EntropyTail: tail})
		pos = newPos
	}
}

// scanEntropyTail scans the entropy-coded scan data starting at pos,
// honoring 0xFF 0x00 byte-stuffing and treating embedded restart markers
// (RST0..RST7) as part of the tail rather than as segment boundaries. It
// returns the offset just past the tail (tailEnd) and the offset at which
// the next marker's lead 0xFF begins (newPos == tailEnd).
func scanEntropyTail(data []byte, pos int) (tailEnd, newPos int, err error) {
	for {
		if pos >= len(data) {
			return 0, 0, fmt.Errorf("%w: unterminated entropy-coded scan", ErrMalformed)
		}
		if data[pos] != 0xFF {
			pos++
			continue
		}
		look := pos + 1
		if look >= len(data) {
			return 0, 0, fmt.Errorf("%w: unterminated entropy-coded scan", ErrMalformed)
		}
		switch {
		case data[look] == 0x00:
			pos = look + 1 // stuffed zero stays in the tail
		case Marker(data[look]).IsRestart():
			pos = look + 1 // restart marker stays in the tail
		default:
			return pos, pos, nil
		}
	}
}

// Encode produces the byte sequence for c as an ordered set of pieces.
// Re-encoding an unmodified Container yields byte-identical output,
// except that each marker is written with a single 0xFF lead: extra 0xFF
// fill bytes skipped by Parse are not restored.
func (c *Container) Encode() (stream.Pieces, error) {
	var pieces stream.Pieces
	for _, seg := range c.Segments {
		if seg.Marker.hasLength() {
			if seg.Contents.Len() > 0xFFFF-2 {
				return nil, fmt.Errorf("%w: segment 0x%02X has %d content bytes", ErrTooLong, seg.Marker, seg.Contents.Len())
			}
			length := seg.Contents.Len() + 2
			header := []byte{0xFF, byte(seg.Marker), byte(length >> 8), byte(length)}
			pieces = append(pieces, buffer.New(header))
			if seg.Contents.Len() > 0 {
				pieces = append(pieces, seg.Contents)
			}
		} else {
			pieces = append(pieces, buffer.New([]byte{0xFF, byte(seg.Marker)}))
		}
		if seg.Marker == SOS && seg.EntropyTail.Len() > 0 {
			pieces = append(pieces, seg.EntropyTail)
		}
	}
	return pieces, nil
}

// InsertSegment inserts seg at position pos in the segment sequence,
// shifting later segments back. pos == len(c.Segments) appends.
func (c *Container) InsertSegment(pos int, seg Segment) {
	c.Segments = append(c.Segments, Segment{})
	copy(c.Segments[pos+1:], c.Segments[pos:])
	c.Segments[pos] = seg
}

// RemoveSegment deletes the segment at position pos.
func (c *Container) RemoveSegment(pos int) {
	c.Segments = append(c.Segments[:pos], c.Segments[pos+1:]...)
}
