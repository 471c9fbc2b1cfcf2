package converter

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// FindFiles enumerates the HEIF files under root. Extensions are matched
// case-insensitively against SourceExtensions. When recursive is false
// only the immediate directory is scanned. Symbolic links are skipped.
// The result is sorted so batches are deterministic.
//
// Unreadable entries below the root are logged and skipped; an error is
// returned only when the root itself cannot be read.
func FindFiles(root string, recursive bool, loggerHandler slog.Handler) ([]string, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable path",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			logger.Debug("skipping symbolic link", slog.String("path", path))
			return nil
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if isSourceExtension(filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(files)
	logger.Debug("directory scan complete",
		slog.String("root", root),
		slog.Bool("recursive", recursive),
		slog.Int("found", len(files)))
	return files, nil
}

func isSourceExtension(ext string) bool {
	for _, known := range SourceExtensions {
		if strings.EqualFold(ext, known) {
			return true
		}
	}
	return false
}
