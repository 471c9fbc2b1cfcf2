// Package codec provides the default converter.Codec implementation.
//
// JPEG, PNG and GIF sources decode in pure Go through the standard image
// registry. HEIF/HEIC/HIF sources are piped through the ImageMagick
// `magick` binary, which also supplies their EXIF payload. Output is
// always JPEG, encoded with image/jpeg; EXIF data is re-attached as a raw
// APP1 segment.
package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

// ImageCodec is the default Codec. The zero value is usable; it looks up
// `magick` on PATH for HEIF sources.
type ImageCodec struct {
	// MagickBinary overrides the ImageMagick executable name.
	MagickBinary string
}

// NewImageCodec returns a codec using the `magick` binary from PATH.
func NewImageCodec() *ImageCodec {
	return &ImageCodec{}
}

// Decode reads the image at path. HEIF-family files are converted to PNG
// by ImageMagick and decoded from the pipe; everything else goes through
// the standard image registry.
func (c *ImageCodec) Decode(ctx context.Context, path string) (image.Image, error) {
	if isHEIFPath(path) {
		return c.decodeHEIF(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// ReadMetadata returns the raw EXIF payload (TIFF stream, without the
// "Exif\x00\x00" header) of the source, or converter.ErrNoMetadata when
// the source carries none or the format has no EXIF support here.
func (c *ImageCodec) ReadMetadata(ctx context.Context, path string) ([]byte, error) {
	if isHEIFPath(path) {
		return c.heifExif(ctx, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".jpg") || strings.EqualFold(filepath.Ext(path), ".jpeg") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return extractJPEGExif(f)
	}
	return nil, converter.ErrNoMetadata
}

// Encode writes img to w as JPEG at the given quality. A non-empty exif
// payload is spliced in as an APP1 segment after the start-of-image
// marker. Payloads above the 64 KiB segment limit are dropped; metadata
// is best effort and never fails an encode on its own.
func (c *ImageCodec) Encode(ctx context.Context, img image.Image, w io.Writer, quality int, exif []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	if len(exif) == 0 || len(exif) > maxExifPayload {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return writeJPEGWithExif(w, buf.Bytes(), exif)
}

func isHEIFPath(path string) bool {
	ext := filepath.Ext(path)
	for _, known := range converter.SourceExtensions {
		if strings.EqualFold(ext, known) {
			return true
		}
	}
	return false
}
