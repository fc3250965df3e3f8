// Package imgmeta reads and rewrites the container-level metadata of
// JPEG, PNG, and WebP files — ICC color profiles and EXIF blocks —
// without decoding pixel data. Every segment, chunk, or fragment the
// parser does not understand is preserved byte-for-byte on re-encode.
//
// Basic usage:
//
//	img, err := imgmeta.Parse(data)
//	profile, ok, err := img.ICCProfile()
//	img.SetEXIF(nil)
//	pieces, err := img.Encoder()
//	_, err = pieces.WriteTo(w)
package imgmeta
