package imgmeta

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/deepforge/imgmeta/jpeg"
	"github.com/deepforge/imgmeta/png"
	"github.com/deepforge/imgmeta/riff"
	"github.com/deepforge/imgmeta/stream"
)

// Format identifies which underlying container a DynImage wraps.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWebP
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatWebP:
		return "WebP"
	default:
		return "unknown"
	}
}

// ErrUnknownFormat is returned by Parse when the input matches none of
// the supported magic byte sequences.
var ErrUnknownFormat = errors.New("imgmeta: unrecognized container format")

var pngSignature = [8]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// DynImage is a tagged union over the three supported containers,
// giving callers a single type to hold regardless of format (spec.md
// §4.4).
type DynImage struct {
	Format Format

	jpeg *jpeg.Container
	png  *png.Container
	webp *riff.WebP
}

// Parse sniffs data's leading bytes and dispatches to the matching
// container parser. Returns ErrUnknownFormat if no magic matches.
func Parse(data []byte) (*DynImage, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		c, err := jpeg.Parse(data)
		if err != nil {
			return nil, err
		}
		return &DynImage{Format: FormatJPEG, jpeg: c}, nil

	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature[:]):
		c, err := png.Parse(data)
		if err != nil {
			return nil, err
		}
		return &DynImage{Format: FormatPNG, png: c}, nil

	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		w, err := riff.ParseWebP(data)
		if err != nil {
			return nil, err
		}
		return &DynImage{Format: FormatWebP, webp: w}, nil

	default:
		return nil, ErrUnknownFormat
	}
}

// ICCProfile returns the decoded ICC color profile, if any. PNG's iCCP
// decompression error, if inflating fails, is surfaced here.
func (d *DynImage) ICCProfile() ([]byte, bool, error) {
	switch d.Format {
	case FormatJPEG:
		p, ok := d.jpeg.ICCProfile()
		return p, ok, nil
	case FormatPNG:
		return d.png.ICCProfile()
	case FormatWebP:
		p, ok := d.webp.ICCProfile()
		return p, ok, nil
	default:
		return nil, false, fmt.Errorf("imgmeta: unreachable format %v", d.Format)
	}
}

// SetICCProfile replaces (or, passing nil, removes) the ICC color
// profile.
func (d *DynImage) SetICCProfile(profile []byte) error {
	switch d.Format {
	case FormatJPEG:
		d.jpeg.SetICCProfile(profile)
		return nil
	case FormatPNG:
		d.png.SetICCProfile(profile)
		return nil
	case FormatWebP:
		return d.webp.SetICCProfile(profile)
	default:
		return fmt.Errorf("imgmeta: unreachable format %v", d.Format)
	}
}

// EXIF returns the raw EXIF TIFF stream, if any.
func (d *DynImage) EXIF() ([]byte, bool) {
	switch d.Format {
	case FormatJPEG:
		return d.jpeg.EXIF()
	case FormatPNG:
		return d.png.EXIF()
	case FormatWebP:
		return d.webp.EXIF()
	default:
		return nil, false
	}
}

// SetEXIF replaces (or, passing nil, removes) the EXIF block.
func (d *DynImage) SetEXIF(data []byte) error {
	switch d.Format {
	case FormatJPEG:
		return d.jpeg.SetEXIF(data)
	case FormatPNG:
		d.png.SetEXIF(data)
		return nil
	case FormatWebP:
		return d.webp.SetEXIF(data)
	default:
		return fmt.Errorf("imgmeta: unreachable format %v", d.Format)
	}
}

// Encoder re-serializes the wrapped container, preserving every
// segment/chunk the caller did not edit byte-for-byte.
func (d *DynImage) Encoder() (stream.Pieces, error) {
	switch d.Format {
	case FormatJPEG:
		return d.jpeg.Encode()
	case FormatPNG:
		return d.png.Encode()
	case FormatWebP:
		return d.webp.Encode()
	default:
		return nil, fmt.Errorf("imgmeta: unreachable format %v", d.Format)
	}
}
