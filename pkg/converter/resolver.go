package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Resolver maps a conversion request to its concrete output file path,
// creating intermediate directories as a side effect. Resolution is
// deterministic for a given request and clock; resolving the same
// request twice yields the same path.
//
// Distinct requests may resolve to the same output path (duplicate base
// names collapsed by a rename pattern). The engine does not deduplicate;
// the last writer wins.
type Resolver struct {
	clock  func() time.Time
	logger *slog.Logger
}

// NewResolver creates a Resolver. clock supplies the {timestamp}
// placeholder value; nil defaults to time.Now.
func NewResolver(clock func() time.Time, loggerHandler slog.Handler) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{
		clock:  clock,
		logger: slog.New(loggerHandler).With(slog.String("component", "resolver")),
	}
}

// Resolve computes the output path for req. It fails only when a needed
// output subdirectory cannot be created, wrapping ErrMkdirFailed.
func (r *Resolver) Resolve(req Request) (string, error) {
	outDir := req.OutputRoot

	if req.PreserveStructure && filepath.IsAbs(req.SourcePath) {
		srcDir := filepath.Dir(req.SourcePath)
		if !strings.HasPrefix(srcDir, req.OutputRoot) {
			// Rebase the source directory relative to the parent of the
			// output root, so converting /photos/2024 into /out keeps
			// the photos/2024 hierarchy under /out.
			rel, err := filepath.Rel(filepath.Dir(req.OutputRoot), srcDir)
			if err != nil {
				// Cross-volume paths cannot be rebased; fall back to the
				// flat output root.
				r.logger.Warn("cannot mirror source directory, writing to output root",
					slog.String("source", req.SourcePath),
					slog.String("error", err.Error()))
			} else {
				outDir = filepath.Join(req.OutputRoot, rel)
				// MkdirAll treats an existing directory as success, so
				// concurrent workers targeting the same subtree are safe.
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return "", fmt.Errorf("%w: %v", ErrMkdirFailed, err)
				}
			}
		}
	}

	base := filepath.Base(req.SourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	if req.RenamePattern != "" {
		// {counter} has always substituted the constant "1"; making it a
		// running counter would change output names for existing setups.
		name = strings.NewReplacer(
			"{name}", name,
			"{timestamp}", r.clock().Format(TimestampLayout),
			"{counter}", "1",
		).Replace(req.RenamePattern)
	}

	return filepath.Join(outDir, name+TargetExtension), nil
}
