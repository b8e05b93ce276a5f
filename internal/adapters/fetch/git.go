package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
)

// gitFetcher materializes generic Git references by maintaining a bare mirror
// per remote and exporting detached checkouts from it.
type gitFetcher struct {
	cacheDir string
}

func (f *gitFetcher) fetch(ctx context.Context, ref domain.FlakeRef) (domain.FlakeRef, ports.FetchResult, error) {
	remote := gitRemote(ref.URI)
	mirror := filepath.Join(f.cacheDir, "git", cacheKey(remote))

	rev := ref.Rev
	if rev == "" || !revPresent(ctx, mirror, rev) {
		if err := f.syncMirror(ctx, mirror, remote); err != nil {
			return domain.FlakeRef{}, ports.FetchResult{}, err
		}
	}
	if rev == "" {
		name := ref.Ref
		if name == "" {
			name = "HEAD"
		}
		resolved, err := runGit(ctx, mirror, "rev-parse", name+"^{commit}")
		if err != nil {
			return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(err, "ref", ref.String())
		}
		rev = resolved
	} else if !revPresent(ctx, mirror, rev) {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrFetchFailure, "revision not found in repository"), "kind", "not-found"),
			"ref", ref.String(),
		)
	}

	tree := filepath.Join(f.cacheDir, "tree", cacheKey(remote, rev))
	if err := f.export(ctx, mirror, rev, tree); err != nil {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(err, "ref", ref.String())
	}

	var revCount *uint64
	if out, err := runGit(ctx, mirror, "rev-list", "--count", rev); err == nil {
		if n, convErr := strconv.ParseUint(out, 10, 64); convErr == nil {
			revCount = &n
		}
	}

	pinned := ref
	pinned.Rev = rev
	return pinned, ports.FetchResult{Path: tree, Rev: rev, RevCount: revCount}, nil
}

// syncMirror clones or updates the bare mirror for remote.
func (f *gitFetcher) syncMirror(ctx context.Context, mirror, remote string) error {
	if _, err := os.Stat(mirror); os.IsNotExist(err) {
		if _, err := runGit(ctx, "", "clone", "--mirror", remote, mirror); err != nil {
			return zerr.With(err, "remote", remote)
		}
		return nil
	}
	if _, err := runGit(ctx, mirror, "fetch", "--prune", "origin"); err != nil {
		return zerr.With(err, "remote", remote)
	}
	return nil
}

// export writes a detached checkout of rev into tree. Existing exports are
// reused: the directory name is derived from the revision, so the content
// cannot have changed.
func (f *gitFetcher) export(ctx context.Context, mirror, rev, tree string) error {
	if _, err := os.Stat(tree); err == nil {
		return nil
	}

	tmp := tree + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return zerr.Wrap(err, "failed to clear export scratch directory")
	}
	if _, err := runGit(ctx, "", "clone", "--no-checkout", "--shared", mirror, tmp); err != nil {
		return err
	}
	if _, err := runGit(ctx, tmp, "checkout", "--detach", rev); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(tmp, ".git")); err != nil {
		return zerr.Wrap(err, "failed to strip repository metadata from export")
	}
	if err := os.MkdirAll(filepath.Dir(tree), dirPerm); err != nil {
		return zerr.Wrap(err, "failed to create export directory")
	}
	if err := os.Rename(tmp, tree); err != nil {
		return zerr.Wrap(err, "failed to move export into place")
	}
	return nil
}

func revPresent(ctx context.Context, mirror, rev string) bool {
	if _, err := os.Stat(mirror); err != nil {
		return false
	}
	_, err := runGit(ctx, mirror, "cat-file", "-e", rev+"^{commit}")
	return err == nil
}

// gitRemote translates a reference URI into the URL git understands. The
// git+ prefix marks the transport in reference syntax only.
func gitRemote(uri string) string {
	return strings.TrimPrefix(uri, "git+")
}

// runGit executes a git subcommand and returns its trimmed stdout. dir is
// the working directory, empty for none.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", zerr.With(zerr.With(
			zerr.Wrap(domain.ErrFetchFailure, "git "+args[0]+" failed"),
			"kind", classifyGitError(stderr)),
			"stderr", stderr,
		)
	}
	return strings.TrimSpace(string(out)), nil
}

func classifyGitError(stderr string) string {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "not found"),
		strings.Contains(s, "does not exist"),
		strings.Contains(s, "unknown revision"),
		strings.Contains(s, "bad revision"):
		return "not-found"
	case strings.Contains(s, "could not resolve host"),
		strings.Contains(s, "connection"),
		strings.Contains(s, "timed out"):
		return "network"
	default:
		return "unknown"
	}
}
