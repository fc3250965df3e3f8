package jpeg

import (
	"bytes"
	"fmt"

	"github.com/deepforge/imgmeta/buffer"
)

// exifPreamble is the literal prefix identifying an APP1 segment as EXIF
// rather than XMP or another APP1 use (spec.md §3, grounded on the
// "Exif\0\0" discriminator used throughout jrm-1535-jpeg/app.go and
// ostafen-digler/internal/format's APP1 handling).
var exifPreamble = []byte("Exif\x00\x00")

// exifSegmentIndex returns the position of the first APP1/EXIF segment,
// or -1 if none exists.
func (c *Container) exifSegmentIndex() int {
	for i, seg := range c.Segments {
		if seg.Marker != APP1 {
			continue
		}
		if bytes.HasPrefix(seg.Contents.Bytes(), exifPreamble) {
			return i
		}
	}
	return -1
}

// EXIF returns the EXIF TIFF stream carried in the first APP1/EXIF
// segment, with the "Exif\0\0" preamble stripped, and true if present.
func (c *Container) EXIF() ([]byte, bool) {
	i := c.exifSegmentIndex()
	if i < 0 {
		return nil, false
	}
	seg := c.Segments[i]
	return seg.Contents.Slice(len(exifPreamble), seg.Contents.Len()).Bytes(), true
}

// SetEXIF replaces any existing EXIF payload. Passing nil removes it. A
// non-nil value is wrapped with the "Exif\0\0" preamble and inserted as
// a new APP1 segment immediately after SOI (position 1), per spec.md
// §4.1. It fails with ErrTooLong if the wrapped payload would not fit
// the 16-bit segment length field.
func (c *Container) SetEXIF(data []byte) error {
	for {
		i := c.exifSegmentIndex()
		if i < 0 {
			break
		}
		c.RemoveSegment(i)
	}
	if data == nil {
		return nil
	}

	content := make([]byte, 0, len(exifPreamble)+len(data))
	content = append(content, exifPreamble...)
	content = append(content, data...)
	if len(content) > 0xFFFF-2 {
		return fmt.Errorf("%w: EXIF payload of %d bytes exceeds APP1 segment capacity", ErrTooLong, len(content))
	}

	c.InsertSegment(1, Segment{Marker: APP1, Contents: buffer.New(content)})
	return nil
}
