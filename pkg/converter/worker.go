package converter

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// fileConverter converts a single file: resolve the target path, decode,
// flatten transparency, optionally read EXIF, encode. One instance is
// shared by all workers; it holds no per-request state.
type fileConverter struct {
	codec    Codec
	resolver *Resolver
	logger   *slog.Logger
}

func newFileConverter(codec Codec, resolver *Resolver, loggerHandler slog.Handler) *fileConverter {
	return &fileConverter{
		codec:    codec,
		resolver: resolver,
		logger:   slog.New(loggerHandler).With(slog.String("component", "worker")),
	}
}

// convert performs one request end to end. It writes exactly one file at
// the resolved path on success and nothing on failure.
func (c *fileConverter) convert(ctx context.Context, req Request) Outcome {
	start := time.Now()
	fail := func(err error) Outcome {
		c.logger.Error("conversion failed",
			slog.String("source", req.SourcePath),
			slog.String("error", err.Error()))
		return Outcome{
			SourcePath: req.SourcePath,
			Status:     StatusFailed,
			Reason:     err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	outPath, err := c.resolver.Resolve(req)
	if err != nil {
		return fail(err)
	}

	img, err := c.codec.Decode(ctx, req.SourcePath)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrDecode, err))
	}
	img = flattenAlpha(img)

	// A metadata read failure downgrades to "no metadata"; it never
	// aborts the conversion.
	var exif []byte
	if req.PreserveMetadata {
		exif, err = c.codec.ReadMetadata(ctx, req.SourcePath)
		if err != nil {
			c.logger.Warn("could not read EXIF, converting without metadata",
				slog.String("source", req.SourcePath),
				slog.String("error", err.Error()))
			exif = nil
		}
	}

	if err := c.writeOutput(ctx, img, outPath, req.Quality, exif); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrEncode, err))
	}

	c.logger.Info("converted",
		slog.String("source", req.SourcePath),
		slog.String("output", outPath),
		slog.Duration("took", time.Since(start)))
	return Outcome{
		SourcePath: req.SourcePath,
		Status:     StatusSuccess,
		OutputPath: outPath,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// writeOutput encodes into a temp file in the target directory and
// renames it into place, so a failed encode never leaves a truncated
// file at the output path.
func (c *fileConverter) writeOutput(ctx context.Context, img image.Image, outPath string, quality int, exif []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".heif2jpeg-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := c.codec.Encode(ctx, img, tmp, quality, exif); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// flattenAlpha composites a non-opaque image onto an opaque white
// background. JPEG has no alpha channel; without compositing,
// semi-transparent pixels would keep their premultiplied colors.
func flattenAlpha(img image.Image) image.Image {
	if opq, ok := img.(interface{ Opaque() bool }); ok && opq.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
