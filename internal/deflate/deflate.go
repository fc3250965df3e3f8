// Package deflate is the narrow opaque zlib adapter behind PNG's iCCP
// chunk. The rest of the module never imports klauspost/compress
// directly, so swapping the implementation later touches only this file.
package deflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrInflate is returned when a zlib stream cannot be decompressed. The
// returned error wraps ErrInflate and includes the underlying
// klauspost/compress error's message.
var ErrInflate = errors.New("deflate: inflate failed")

// Compress returns the zlib-wrapped deflate stream for data. Compression
// of valid input cannot fail, so there is no error return.
func Compress(data []byte) []byte {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		// BestCompression is always a valid level; this would indicate a
		// bug in the adapter, not a runtime condition callers can react to.
		panic(fmt.Sprintf("deflate: invalid compression level: %v", err))
	}
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

// Decompress inflates a zlib stream produced by Compress (or any
// conformant zlib encoder).
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInflate, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInflate, err)
	}
	return out, nil
}
