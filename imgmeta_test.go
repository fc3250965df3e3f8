package imgmeta

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func crc32Of(kind string, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write([]byte(kind))
	h.Write(data)
	return h.Sum32()
}

func minimalJPEG() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}
}

func minimalPNG() []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])

	writeChunk := func(kind string, data []byte) {
		length := make([]byte, 4)
		binary.BigEndian.PutUint32(length, uint32(len(data)))
		buf.Write(length)
		buf.WriteString(kind)
		buf.Write(data)
		h := crc32Of(kind, data)
		crc := make([]byte, 4)
		binary.BigEndian.PutUint32(crc, h)
		buf.Write(crc)
	}
	writeChunk("IHDR", make([]byte, 13))
	writeChunk("IEND", nil)
	return buf.Bytes()
}

func minimalWebP() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	buf.Write([]byte{0, 0, 0, 0}) // length placeholder, fixed below
	buf.WriteString("WEBP")
	buf.WriteString("VP8L")
	payload := []byte{0x2F, 0x1F, 0x00, 0x03, 0x00}
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(len(payload)))
	buf.Write(length)
	buf.Write(payload)
	buf.WriteByte(0x00) // pad byte, odd length

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

func TestParseDetectsJPEG(t *testing.T) {
	img, err := Parse(minimalJPEG())
	require.NoError(t, err)
	require.Equal(t, FormatJPEG, img.Format)
}

func TestParseDetectsPNG(t *testing.T) {
	img, err := Parse(minimalPNG())
	require.NoError(t, err)
	require.Equal(t, FormatPNG, img.Format)
}

func TestParseDetectsWebP(t *testing.T) {
	img, err := Parse(minimalWebP())
	require.NoError(t, err)
	require.Equal(t, FormatWebP, img.Format)
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := Parse([]byte("not an image"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEXIFRoundTripThroughFacade(t *testing.T) {
	img, err := Parse(minimalPNG())
	require.NoError(t, err)

	require.NoError(t, img.SetEXIF([]byte("II*\x00fake")))
	got, ok := img.EXIF()
	require.True(t, ok)
	require.Equal(t, []byte("II*\x00fake"), got)

	pieces, err := img.Encoder()
	require.NoError(t, err)

	img2, err := Parse(pieces.Concat())
	require.NoError(t, err)
	got2, ok := img2.EXIF()
	require.True(t, ok)
	require.Equal(t, []byte("II*\x00fake"), got2)
}

func TestICCProfileRoundTripThroughFacadeOnJPEG(t *testing.T) {
	img, err := Parse(minimalJPEG())
	require.NoError(t, err)

	require.NoError(t, img.SetICCProfile([]byte("profile-bytes")))
	got, ok, err := img.ICCProfile()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("profile-bytes"), got)
}
