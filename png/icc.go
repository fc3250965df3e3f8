package png

import (
	"bytes"
	"fmt"

	"github.com/deepforge/imgmeta/buffer"
	"github.com/deepforge/imgmeta/internal/deflate"
)

// defaultICCName is used when SetICCProfile synthesizes a new iCCP
// chunk; callers cannot (and per spec.md §4.2 need not) control the
// profile name.
const defaultICCName = "ICC profile"

const iccCompressionZlib = 0x00

// ICCProfile decompresses and returns the color profile carried in the
// first iCCP chunk, if any. An unknown compression method yields "no
// profile" silently; a zlib stream that fails to inflate surfaces
// ErrInflateError (spec.md §4.2, §7).
func (c *Container) ICCProfile() ([]byte, bool, error) {
	i := c.indexOfKind(KindICCP)
	if i < 0 {
		return nil, false, nil
	}
	data := c.Chunks[i].Data.Bytes()

	nul := bytes.IndexByte(data, 0x00)
	if nul < 0 || nul < 1 || nul > 79 || nul+1 >= len(data) {
		return nil, false, nil
	}
	method := data[nul+1]
	if method != iccCompressionZlib {
		return nil, false, nil
	}

	profile, err := deflate.Decompress(data[nul+2:])
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInflateError, err)
	}
	return profile, true, nil
}

// SetICCProfile replaces any existing iCCP chunk. Passing nil removes
// it. A non-nil profile is deflate-compressed and inserted as a new
// iCCP chunk immediately following IHDR (spec.md §4.2).
func (c *Container) SetICCProfile(profile []byte) {
	for {
		i := c.indexOfKind(KindICCP)
		if i < 0 {
			break
		}
		c.RemoveChunk(i)
	}
	if profile == nil {
		return
	}

	compressed := deflate.Compress(profile)
	data := make([]byte, 0, len(defaultICCName)+2+len(compressed))
	data = append(data, defaultICCName...)
	data = append(data, 0x00, iccCompressionZlib)
	data = append(data, compressed...)

	insertAt := c.indexOfKind(KindIHDR) + 1
	c.InsertChunk(insertAt, Chunk{Kind: KindICCP, Data: buffer.New(data), CRCValid: true})
}
