package riff

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deepforge/imgmeta/buffer"
	"github.com/deepforge/imgmeta/stream"
)

// WebP chunk kinds recognized by this package (spec.md §3). Kinds not
// listed here — any future extension chunk — are still carried through
// a parse/encode round trip by the generic Container, just uninterpreted.
const (
	KindVP8  = "VP8 "
	KindVP8L = "VP8L"
	KindVP8X = "VP8X"
	KindICCP = "ICCP"
	KindEXIF = "EXIF"
	KindANIM = "ANIM"
	KindANMF = "ANMF"
	KindALPH = "ALPH"
	KindXMP  = "XMP "
)

// VP8X feature-flag bits within the flags byte (spec.md §4.3).
const (
	flagXMP   = 1 << 2
	flagEXIF  = 1 << 3
	flagAlpha = 1 << 4
	flagICCP  = 1 << 5
	flagAnim  = 1 << 1
)

const vp8xPayloadSize = 10

var (
	errVP8X = fmt.Errorf("%w: invalid VP8X chunk", ErrMalformed)
)

// WebP is the WebP-specific logical view over a generic RIFF Container
// (spec.md §3 "WebP logical view over RIFF").
type WebP struct {
	Container *Container

	// vp8xSynthesized tracks whether this WebP's VP8X chunk (if any) was
	// inserted by SetICCProfile/SetEXIF rather than present in the
	// parsed input. It governs the Open Question in spec.md §9: a
	// setter clearing the last optional feature deletes a VP8X chunk
	// only if the library itself put it there.
	vp8xSynthesized bool
}

// ParseWebP decodes a complete RIFF/WEBP byte buffer.
func ParseWebP(data []byte) (*WebP, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if c.FormKind != "WEBP" {
		return nil, fmt.Errorf("%w: form kind %q, want WEBP", ErrMalformed, c.FormKind)
	}
	return &WebP{Container: c}, nil
}

// Encode produces the byte sequence for w's underlying RIFF container.
func (w *WebP) Encode() (stream.Pieces, error) {
	return w.Container.Encode()
}

// vp8xIndex returns the position of the VP8X chunk, or -1.
func (w *WebP) vp8xIndex() int {
	if len(w.Container.Chunks) > 0 && w.Container.Chunks[0].Kind == KindVP8X {
		return 0
	}
	return -1
}

// vp8xFlags returns the current VP8X flags byte, or 0 if no VP8X chunk
// is present.
func (w *WebP) vp8xFlags() byte {
	i := w.vp8xIndex()
	if i < 0 {
		return 0
	}
	return w.Container.Chunks[i].Data.Bytes()[0]
}

// ICCProfile returns the raw ICCP chunk data, if present (spec.md §3:
// WebP ICC is carried raw, with no reassembly needed).
func (w *WebP) ICCProfile() ([]byte, bool) {
	i := w.Container.IndexOfKind(KindICCP)
	if i < 0 {
		return nil, false
	}
	return w.Container.Chunks[i].Data.Bytes(), true
}

// exifPreamble mirrors the JPEG APP1 preamble; some historical WebP
// writers mistakenly prepended it to the EXIF chunk (spec.md §3 note).
var exifPreamble = []byte("Exif\x00\x00")

// EXIF returns the raw EXIF TIFF stream carried in the EXIF chunk, if
// present. A legacy "Exif\0\0"-prefixed payload has that prefix
// stripped; an unprefixed payload is returned as-is (spec.md §7,
// historical-compatibility rule).
func (w *WebP) EXIF() ([]byte, bool) {
	i := w.Container.IndexOfKind(KindEXIF)
	if i < 0 {
		return nil, false
	}
	data := w.Container.Chunks[i].Data.Bytes()
	if bytes.HasPrefix(data, exifPreamble) {
		return data[len(exifPreamble):], true
	}
	return data, true
}

// SetICCProfile replaces any existing ICCP chunk. Passing nil removes
// it and clears the corresponding VP8X feature bit.
func (w *WebP) SetICCProfile(profile []byte) error {
	return w.setMetadataChunk(KindICCP, flagICCP, profile)
}

// SetEXIF replaces any existing EXIF chunk. Passing nil removes it and
// clears the corresponding VP8X feature bit. Values are stored without
// the legacy "Exif\0\0" preamble, matching current-format behavior
// (spec.md §3).
func (w *WebP) SetEXIF(data []byte) error {
	return w.setMetadataChunk(KindEXIF, flagEXIF, data)
}

// setMetadataChunk implements the shared remove/insert/flag-bookkeeping
// logic behind SetICCProfile and SetEXIF (spec.md §4.3).
func (w *WebP) setMetadataChunk(kind string, flag byte, value []byte) error {
	if i := w.vp8xIndex(); i >= 0 && w.Container.Chunks[i].Data.Len() < vp8xPayloadSize {
		return errVP8X
	}
	for {
		i := w.Container.IndexOfKind(kind)
		if i < 0 {
			break
		}
		w.Container.RemoveChunk(i)
	}

	if value == nil {
		w.clearFlag(flag)
		return nil
	}

	if err := w.ensureVP8X(); err != nil {
		return err
	}
	w.setFlag(flag)

	insertAt := w.insertPositionFor(kind)
	w.Container.InsertChunk(insertAt, Chunk{Kind: kind, Data: buffer.New(value)})
	return nil
}

// insertPositionFor returns where a new metadata chunk of the given
// kind belongs: ICCP goes immediately after VP8X; EXIF goes before XMP
// if present, else at the end (spec.md §4.3).
func (w *WebP) insertPositionFor(kind string) int {
	switch kind {
	case KindICCP:
		return w.vp8xIndex() + 1
	case KindEXIF:
		if i := w.Container.IndexOfKind(KindXMP); i >= 0 {
			return i
		}
		return len(w.Container.Chunks)
	default:
		return len(w.Container.Chunks)
	}
}

// ensureVP8X makes sure a VP8X chunk exists as the first inner chunk,
// synthesizing one from the current bitstream dimensions if necessary
// (spec.md §4.3).
func (w *WebP) ensureVP8X() error {
	if w.vp8xIndex() == 0 {
		return nil
	}

	width, height, err := w.currentDimensions()
	if err != nil {
		return err
	}

	body := make([]byte, vp8xPayloadSize)
	// flags byte and reserved bytes start zero; width/height below.
	putLE24(body[4:7], width-1)
	putLE24(body[7:10], height-1)

	w.Container.InsertChunk(0, Chunk{Kind: KindVP8X, Data: buffer.New(body)})
	w.vp8xSynthesized = true
	return nil
}

// clearFlag clears a VP8X feature bit and, per spec.md §9's Open
// Question resolution, deletes the VP8X chunk entirely if it was
// synthesized by this package and no optional feature remains set.
func (w *WebP) clearFlag(flag byte) {
	i := w.vp8xIndex()
	if i < 0 {
		return
	}
	data := w.Container.Chunks[i].Data.Clone()
	data[0] &^= flag
	w.Container.Chunks[i].Data = buffer.New(data)

	if w.vp8xSynthesized && data[0] == 0 {
		w.Container.RemoveChunk(i)
		w.vp8xSynthesized = false
	}
}

// setFlag sets a VP8X feature bit.
func (w *WebP) setFlag(flag byte) {
	i := w.vp8xIndex()
	if i < 0 {
		return
	}
	data := w.Container.Chunks[i].Data.Clone()
	data[0] |= flag
	w.Container.Chunks[i].Data = buffer.New(data)
}

// currentDimensions returns the canvas size implied by an existing VP8X
// chunk, or else the first VP8/VP8L bitstream chunk's own dimensions.
func (w *WebP) currentDimensions() (width, height int, err error) {
	if i := w.vp8xIndex(); i >= 0 {
		return VP8XDimensions(w.Container.Chunks[i].Data.Bytes())
	}
	if i := w.Container.IndexOfKind(KindVP8L); i >= 0 {
		width, height, _, err = VP8LDimensions(w.Container.Chunks[i].Data.Bytes())
		return width, height, err
	}
	if i := w.Container.IndexOfKind(KindVP8); i >= 0 {
		return VP8Dimensions(w.Container.Chunks[i].Data.Bytes())
	}
	return 0, 0, fmt.Errorf("%w: no VP8X, VP8, or VP8L chunk to derive canvas size from", ErrMalformed)
}

// Dimensions returns the image's canvas width and height: from VP8X if
// present, else from the sole VP8/VP8L bitstream chunk (spec.md §4.3).
func (w *WebP) Dimensions() (width, height int, err error) {
	return w.currentDimensions()
}

// VP8XDimensions extracts canvas width/height from a VP8X chunk's 10-byte
// payload. Width/height are 1-based 24-bit little-endian values.
func VP8XDimensions(payload []byte) (width, height int, err error) {
	if len(payload) < vp8xPayloadSize {
		return 0, 0, errVP8X
	}
	return readLE24(payload[4:7]) + 1, readLE24(payload[7:10]) + 1, nil
}

// VP8Dimensions extracts width/height from a VP8 (lossy) bitstream's
// frame header: signature bytes 9D 01 2A at offset 3, then 14-bit
// width/height little-endian (top 2 bits of each are scaling info and
// are ignored for size purposes), per spec.md §4.3.
func VP8Dimensions(data []byte) (width, height int, err error) {
	if len(data) < 10 {
		return 0, 0, fmt.Errorf("%w: VP8 frame header truncated", ErrMalformed)
	}
	if data[3] != 0x9D || data[4] != 0x01 || data[5] != 0x2A {
		return 0, 0, fmt.Errorf("%w: bad VP8 signature", ErrMalformed)
	}
	width = int(binary.LittleEndian.Uint16(data[6:8])) & 0x3FFF
	height = int(binary.LittleEndian.Uint16(data[8:10])) & 0x3FFF
	return width, height, nil
}

// VP8LDimensions extracts width, height, and alpha presence from a
// VP8L (lossless) bitstream header: 0x2F signature byte, then a packed
// 32-bit little-endian field holding width-1 (14 bits), height-1 (14
// bits), alpha_used (1 bit), and version (3 bits), per spec.md §4.3.
func VP8LDimensions(data []byte) (width, height int, hasAlpha bool, err error) {
	if len(data) < 5 {
		return 0, 0, false, fmt.Errorf("%w: VP8L header truncated", ErrMalformed)
	}
	if data[0] != 0x2F {
		return 0, 0, false, fmt.Errorf("%w: bad VP8L signature", ErrMalformed)
	}
	bits := binary.LittleEndian.Uint32(data[1:5])
	width = int(bits&0x3FFF) + 1
	height = int((bits>>14)&0x3FFF) + 1
	hasAlpha = (bits>>28)&1 != 0
	return width, height, hasAlpha, nil
}

func readLE24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

func putLE24(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
