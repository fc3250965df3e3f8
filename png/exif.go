package png

import "github.com/deepforge/imgmeta/buffer"

// EXIF returns the raw EXIF TIFF stream carried in the first eXIf
// chunk, if any (spec.md §3: PNG EXIF is the chunk data, unmodified).
func (c *Container) EXIF() ([]byte, bool) {
	i := c.indexOfKind(KindEXIF)
	if i < 0 {
		return nil, false
	}
	return c.Chunks[i].Data.Bytes(), true
}

// SetEXIF replaces any existing eXIf chunk. Passing nil removes it. A
// non-nil value is inserted as a new eXIf chunk directly before IEND,
// or after IHDR if the document has no IEND yet (spec.md §4.2).
func (c *Container) SetEXIF(data []byte) {
	for {
		i := c.indexOfKind(KindEXIF)
		if i < 0 {
			break
		}
		c.RemoveChunk(i)
	}
	if data == nil {
		return
	}

	insertAt := c.indexOfKind(KindIEND)
	if insertAt < 0 {
		insertAt = c.indexOfKind(KindIHDR) + 1
	}
	c.InsertChunk(insertAt, Chunk{Kind: KindEXIF, Data: buffer.New(data), CRCValid: true})
}
