package converter

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
}

func TestResolverFlatOutput(t *testing.T) {
	outRoot := t.TempDir()
	r := NewResolver(fixedClock, discardHandler())

	got, err := r.Resolve(Request{
		SourcePath: "/photos/vacation/IMG_0001.heic",
		OutputRoot: outRoot,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outRoot, "IMG_0001.jpg"), got)
}

func TestResolverPreserveStructure(t *testing.T) {
	base := t.TempDir()
	srcDir := filepath.Join(base, "photos", "2024")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	outRoot := filepath.Join(base, "converted")
	require.NoError(t, os.MkdirAll(outRoot, 0o755))

	r := NewResolver(fixedClock, discardHandler())
	got, err := r.Resolve(Request{
		SourcePath:        filepath.Join(srcDir, "IMG_0001.heic"),
		OutputRoot:        outRoot,
		PreserveStructure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outRoot, "photos", "2024", "IMG_0001.jpg"), got)

	// The subtree must exist after resolution.
	info, err := os.Stat(filepath.Join(outRoot, "photos", "2024"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolverSourceInsideOutputStaysFlat(t *testing.T) {
	outRoot := t.TempDir()
	r := NewResolver(fixedClock, discardHandler())

	got, err := r.Resolve(Request{
		SourcePath:        filepath.Join(outRoot, "IMG_0002.heic"),
		OutputRoot:        outRoot,
		PreserveStructure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outRoot, "IMG_0002.jpg"), got)
}

func TestResolverRenamePattern(t *testing.T) {
	outRoot := t.TempDir()
	r := NewResolver(fixedClock, discardHandler())

	got, err := r.Resolve(Request{
		SourcePath:    "/photos/IMG_0001.heic",
		OutputRoot:    outRoot,
		RenamePattern: "{name}_{timestamp}_{counter}",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outRoot, "IMG_0001_20240315_103000_1.jpg"), got)
}

func TestResolverIdempotent(t *testing.T) {
	base := t.TempDir()
	srcDir := filepath.Join(base, "album")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	outRoot := filepath.Join(base, "out")

	r := NewResolver(fixedClock, discardHandler())
	req := Request{
		SourcePath:        filepath.Join(srcDir, "a.heic"),
		OutputRoot:        outRoot,
		PreserveStructure: true,
		RenamePattern:     "{name}_{timestamp}",
	}

	first, err := r.Resolve(req)
	require.NoError(t, err)
	second, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolverMkdirFailure(t *testing.T) {
	base := t.TempDir()
	srcDir := filepath.Join(base, "photos")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	outRoot := filepath.Join(base, "out")
	require.NoError(t, os.MkdirAll(outRoot, 0o755))
	// A plain file where the mirrored subdirectory should go.
	require.NoError(t, os.WriteFile(filepath.Join(outRoot, "photos"), []byte("x"), 0o644))

	r := NewResolver(fixedClock, discardHandler())
	_, err := r.Resolve(Request{
		SourcePath:        filepath.Join(srcDir, "a.heic"),
		OutputRoot:        outRoot,
		PreserveStructure: true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMkdirFailed))
}
