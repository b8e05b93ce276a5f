package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
)

// pathFetcher serves local path references in place. A path inside a clean
// Git checkout is pinned to its HEAD revision; anything else stays a dirty
// working tree.
type pathFetcher struct{}

func (f *pathFetcher) fetch(ctx context.Context, ref domain.FlakeRef) (domain.FlakeRef, ports.FetchResult, error) {
	abs, err := filepath.Abs(ref.Path)
	if err != nil {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.Wrap(err, "failed to resolve path reference")
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(zerr.With(
			zerr.Wrap(domain.ErrFetchFailure, "path does not point at a directory"),
			"kind", "not-found"),
			"path", abs,
		)
	}

	pinned := ref
	pinned.Path = abs
	result := ports.FetchResult{Path: abs}

	rev, revCount, ok := headRevision(ctx, abs)
	if !ok {
		// Not a repository, or uncommitted changes: the tree stays mutable.
		pinned.Rev = domain.DirtyRev
		result.Rev = domain.DirtyRev
		return pinned, result, nil
	}

	if ref.Rev != "" && ref.Rev != domain.DirtyRev && ref.Rev != rev {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(zerr.With(zerr.With(
			zerr.Wrap(domain.ErrFetchFailure, "checkout is not at the pinned revision"),
			"kind", "not-found"),
			"path", abs),
			"rev", ref.Rev,
		)
	}

	pinned.Rev = rev
	result.Rev = rev
	result.RevCount = revCount
	return pinned, result, nil
}

// headRevision returns the HEAD commit of the repository containing dir,
// reporting false for non-repositories and dirty working trees.
func headRevision(ctx context.Context, dir string) (string, *uint64, bool) {
	if _, err := runGit(ctx, dir, "rev-parse", "--show-toplevel"); err != nil {
		return "", nil, false
	}
	status, err := runGit(ctx, dir, "status", "--porcelain")
	if err != nil || status != "" {
		return "", nil, false
	}
	rev, err := runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", nil, false
	}

	var revCount *uint64
	if out, err := runGit(ctx, dir, "rev-list", "--count", "HEAD"); err == nil {
		if n, convErr := strconv.ParseUint(out, 10, 64); convErr == nil {
			revCount = &n
		}
	}
	return rev, revCount, true
}
