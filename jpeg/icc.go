package jpeg

import (
	"bytes"
	"sort"

	"github.com/deepforge/imgmeta/buffer"
)

// iccSignature is the literal preamble that marks an APP2 segment as an
// ICC profile fragment (spec.md §3, "ICC profile"). It is followed by a
// 1-based sequence number and a fragment count, each a single byte.
var iccSignature = []byte("ICC_PROFILE\x00")

const (
	iccHeaderLen  = 14 // len(iccSignature) + seq byte + count byte
	iccMaxPayload = 65533 - 14 // 65519: largest fragment that keeps total APP2 content <= 0xFFFF-2
)

type iccFragment struct {
	pos   int // index into c.Segments
	seq   uint8
	count uint8
	data  buffer.Bytes
}

// iccFragments returns every APP2/ICC_PROFILE segment, in document order.
func (c *Container) iccFragments() []iccFragment {
	var frags []iccFragment
	for i, seg := range c.Segments {
		if seg.Marker != APP2 {
			continue
		}
		content := seg.Contents.Bytes()
		if len(content) < iccHeaderLen || !bytes.HasPrefix(content, iccSignature) {
			continue
		}
		frags = append(frags, iccFragment{
			pos:   i,
			seq:   content[len(iccSignature)],
			count: content[len(iccSignature)+1],
			data:  seg.Contents.Slice(iccHeaderLen, seg.Contents.Len()),
		})
	}
	return frags
}

// ICCProfile reassembles the ICC color profile from its APP2 fragments,
// if any are present. Per spec.md §4.1, an inconsistent fragment set
// (disagreeing count, or a seq gap) is treated as "no profile" rather
// than failing the whole parse.
func (c *Container) ICCProfile() ([]byte, bool) {
	frags := c.iccFragments()
	if len(frags) == 0 {
		return nil, false
	}

	count := frags[0].count
	for _, f := range frags {
		if f.count != count {
			return nil, false
		}
	}
	if int(count) != len(frags) || count == 0 {
		return nil, false
	}

	sorted := make([]iccFragment, len(frags))
	copy(sorted, frags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].seq < sorted[j].seq })
	for i, f := range sorted {
		if f.seq != uint8(i+1) {
			return nil, false
		}
	}

	pieces := make([]buffer.Bytes, len(sorted))
	for i, f := range sorted {
		pieces[i] = f.data
	}
	return buffer.Join(pieces), true
}

// SetICCProfile replaces any existing ICC profile. Passing nil removes
// it. A non-nil profile is split into fragments of at most iccMaxPayload
// bytes (so each APP2 segment's total content fits the 16-bit length
// field) and inserted immediately after the APP0 segment (position 2:
// SOI, APP0, then the ICC fragments), per spec.md §4.1.
func (c *Container) SetICCProfile(profile []byte) {
	c.removeICCFragments()

	if profile == nil {
		return
	}

	numFragments := (len(profile) + iccMaxPayload - 1) / iccMaxPayload
	if numFragments == 0 {
		numFragments = 1
	}

	insertAt := c.iccInsertPosition()
	for i := 0; i < numFragments; i++ {
		start := i * iccMaxPayload
		end := start + iccMaxPayload
		if end > len(profile) {
			end = len(profile)
		}
		content := make([]byte, 0, iccHeaderLen+(end-start))
		content = append(content, iccSignature...)
		content = append(content, byte(i+1), byte(numFragments))
		content = append(content, profile[start:end]...)
		c.InsertSegment(insertAt+i, Segment{Marker: APP2, Contents: buffer.New(content)})
	}
}

// removeICCFragments deletes every existing APP2/ICC_PROFILE segment.
func (c *Container) removeICCFragments() {
	for {
		frags := c.iccFragments()
		if len(frags) == 0 {
			return
		}
		c.RemoveSegment(frags[0].pos)
	}
}

// iccInsertPosition returns the index immediately after the APP0
// segment (position 2, following SOI), or immediately after SOI if no
// APP0 segment is present.
func (c *Container) iccInsertPosition() int {
	for i, seg := range c.Segments {
		if seg.Marker == APP0 {
			return i + 1
		}
	}
	return 1
}
