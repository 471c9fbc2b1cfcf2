package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

// decodeHEIF pipes the source through ImageMagick as PNG and decodes the
// result. PNG keeps the alpha channel intact so transparency handling
// stays in one place, the flattening step of the conversion worker.
func (c *ImageCodec) decodeHEIF(ctx context.Context, path string) (image.Image, error) {
	out, err := c.runMagick(ctx, path, "png:-")
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode magick output for %s: %w", path, err)
	}
	return img, nil
}

// heifExif asks ImageMagick for the EXIF profile of a HEIF source. An
// empty profile maps to converter.ErrNoMetadata.
func (c *ImageCodec) heifExif(ctx context.Context, path string) ([]byte, error) {
	out, err := c.runMagick(ctx, path, "EXIF:-")
	if err != nil {
		// ImageMagick exits non-zero when the image has no exif profile.
		if strings.Contains(err.Error(), "no image profile") {
			return nil, converter.ErrNoMetadata
		}
		return nil, err
	}
	if len(out) == 0 {
		return nil, converter.ErrNoMetadata
	}
	return normalizeExifPayload(out), nil
}

// runMagick executes `magick <input> <output>` and returns stdout.
func (c *ImageCodec) runMagick(ctx context.Context, input, output string) ([]byte, error) {
	bin := c.MagickBinary
	if bin == "" {
		bin = "magick"
	}
	cmd := exec.CommandContext(ctx, bin, input, output)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found: install ImageMagick for HEIF support", bin)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", bin, input, msg)
	}
	return stdout.Bytes(), nil
}
