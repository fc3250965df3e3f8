package jpeg

import (
	"bytes"
	"testing"
)

func mustEncode(t *testing.T, c *Container) []byte {
	t.Helper()
	pieces, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return pieces.Concat()
}

func TestParseSOIEOIRoundTrip(t *testing.T) {
	in := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	c, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(c.Segments))
	}
	if c.Segments[0].Marker != SOI || c.Segments[1].Marker != EOI {
		t.Fatalf("segments = %v, want [SOI, EOI]", c.Segments)
	}
	out := mustEncode(t, c)
	if !bytes.Equal(out, in) {
		t.Fatalf("round trip = % X, want % X", out, in)
	}
}

func TestParseDRISegmentRoundTrip(t *testing.T) {
	// SOI, DRI (length 4, content 00 10), EOI.
	in := []byte{0xFF, 0xD8, 0xFF, 0xDD, 0x00, 0x04, 0x00, 0x10, 0xFF, 0xD9}
	c, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(c.Segments))
	}
	dri := c.Segments[1]
	if dri.Marker != DRI || dri.Contents.Len() != 2 {
		t.Fatalf("DRI segment = %+v", dri)
	}
	out := mustEncode(t, c)
	if !bytes.Equal(out, in) {
		t.Fatalf("round trip = % X, want % X", out, in)
	}
}

func buildScanJPEG(scanBytes []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})                         // SOI
	buf.Write([]byte{0xFF, byte(APP0), 0x00, 0x04, 0x4A, 0x46}) // tiny APP0, 2 content bytes "JF"
	buf.Write([]byte{0xFF, byte(SOS), 0x00, 0x02})         // SOS, zero-length content
	buf.Write(scanBytes)
	buf.Write([]byte{0xFF, 0xD9}) // EOI
	return buf.Bytes()
}

func TestEntropyScanStuffingAndRestartPreserved(t *testing.T) {
	scan := []byte{0x12, 0xFF, 0x00, 0x34, 0xFF, 0xD0, 0x56}
	in := buildScanJPEG(scan)
	c, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var sos *Segment
	for i := range c.Segments {
		if c.Segments[i].Marker == SOS {
			sos = &c.Segments[i]
		}
	}
	if sos == nil {
		t.Fatalf("no SOS segment found")
	}
	if !bytes.Equal(sos.EntropyTail.Bytes(), scan) {
		t.Fatalf("entropy tail = % X, want % X", sos.EntropyTail.Bytes(), scan)
	}
	out := mustEncode(t, c)
	if !bytes.Equal(out, in) {
		t.Fatalf("round trip = % X, want % X", out, in)
	}
}

func TestParseRejectsMissingSOI(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x01})
	if err == nil {
		t.Fatalf("expected error for missing SOI")
	}
}

func TestParseRejectsTruncatedScan(t *testing.T) {
	in := buildScanJPEG(nil) // drops EOI, scan runs off the end
	in = in[:len(in)-2]
	_, err := Parse(in)
	if err == nil {
		t.Fatalf("expected error for unterminated scan")
	}
}

func TestICCRoundTripSingleSegment(t *testing.T) {
	in := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	c, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	profile := bytes.Repeat([]byte{0xAB}, 1000)
	c.SetICCProfile(profile)

	got, ok := c.ICCProfile()
	if !ok {
		t.Fatalf("ICCProfile not found after SetICCProfile")
	}
	if !bytes.Equal(got, profile) {
		t.Fatalf("ICCProfile mismatch: got %d bytes, want %d", len(got), len(profile))
	}

	// Re-parse the encoded output and confirm it still round-trips.
	out := mustEncode(t, c)
	c2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	got2, ok := c2.ICCProfile()
	if !ok || !bytes.Equal(got2, profile) {
		t.Fatalf("ICCProfile after re-parse mismatch")
	}
}

func TestICCProfileSplitsAcrossTwoSegments(t *testing.T) {
	in := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	c, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	profile := bytes.Repeat([]byte{0x42}, 70000)
	c.SetICCProfile(profile)

	var app2s []Segment
	for _, seg := range c.Segments {
		if seg.Marker == APP2 {
			app2s = append(app2s, seg)
		}
	}
	if len(app2s) != 2 {
		t.Fatalf("got %d APP2 segments, want 2", len(app2s))
	}
	for i, seg := range app2s {
		content := seg.Contents.Bytes()
		seq := content[len(iccSignature)]
		count := content[len(iccSignature)+1]
		if seq != uint8(i+1) || count != 2 {
			t.Fatalf("segment %d: seq=%d count=%d, want seq=%d count=2", i, seq, count, i+1)
		}
	}

	got, ok := c.ICCProfile()
	if !ok || !bytes.Equal(got, profile) {
		t.Fatalf("reassembled ICC profile mismatch")
	}
}

func TestClearICCProfileIdempotent(t *testing.T) {
	in := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	c, _ := Parse(in)
	c.SetICCProfile([]byte{1, 2, 3})
	c.SetICCProfile(nil)
	c.SetICCProfile(nil)
	if _, ok := c.ICCProfile(); ok {
		t.Fatalf("expected no ICC profile after clearing")
	}
	out := mustEncode(t, c)
	if !bytes.Equal(out, in) {
		t.Fatalf("clearing ICC profile did not restore original bytes: % X vs % X", out, in)
	}
}

func TestEXIFRoundTripStripsPreamble(t *testing.T) {
	in := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	c, _ := Parse(in)
	tiff := []byte("II*\x00\x08\x00\x00\x00fake-tiff")
	if err := c.SetEXIF(tiff); err != nil {
		t.Fatalf("SetEXIF: %v", err)
	}

	got, ok := c.EXIF()
	if !ok || !bytes.Equal(got, tiff) {
		t.Fatalf("EXIF() = %v, %v; want %v, true", got, ok, tiff)
	}

	// The preamble must be invisible to callers, but present on the wire.
	found := false
	for _, seg := range c.Segments {
		if seg.Marker == APP1 && bytes.HasPrefix(seg.Contents.Bytes(), exifPreamble) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an APP1 segment carrying the Exif\\0\\0 preamble")
	}
}

func TestSetEXIFClearThenClearIsIdempotent(t *testing.T) {
	in := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	c, _ := Parse(in)
	_ = c.SetEXIF([]byte("abc"))
	_ = c.SetEXIF(nil)
	_ = c.SetEXIF(nil)
	if _, ok := c.EXIF(); ok {
		t.Fatalf("expected no EXIF after clearing")
	}
	out := mustEncode(t, c)
	if !bytes.Equal(out, in) {
		t.Fatalf("clearing EXIF did not restore original bytes")
	}
}
