package fetch

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
)

// githubFetcher materializes github: references via the tarball endpoint,
// resolving branch and tag names through ls-remote first. Tarballs carry no
// history, so no revision count is reported.
type githubFetcher struct {
	archive *archiveFetcher
}

func (f *githubFetcher) fetch(ctx context.Context, ref domain.FlakeRef) (domain.FlakeRef, ports.FetchResult, error) {
	rev := ref.Rev
	if rev == "" {
		resolved, err := f.resolveRev(ctx, ref)
		if err != nil {
			return domain.FlakeRef{}, ports.FetchResult{}, err
		}
		rev = resolved
	}

	url := fmt.Sprintf("https://github.com/%s/%s/archive/%s.tar.gz", ref.Owner, ref.Repo, rev)
	tree, hash, err := f.archive.fetchURL(ctx, url, ref.NarHash, 1)
	if err != nil {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(err, "ref", ref.String())
	}

	pinned := ref
	pinned.Rev = rev
	pinned.NarHash = hash
	return pinned, ports.FetchResult{Path: tree, Rev: rev, NarHash: hash}, nil
}

// resolveRev asks the remote for the commit behind the branch or tag name,
// or HEAD when no name is given.
func (f *githubFetcher) resolveRev(ctx context.Context, ref domain.FlakeRef) (string, error) {
	remote := fmt.Sprintf("https://github.com/%s/%s.git", ref.Owner, ref.Repo)
	args := []string{"ls-remote", remote}
	if ref.Ref != "" {
		args = append(args, ref.Ref)
	} else {
		args = append(args, "HEAD")
	}

	out, err := runGit(ctx, "", args...)
	if err != nil {
		return "", zerr.With(err, "ref", ref.String())
	}
	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		if len(fields) >= 1 {
			return fields[0], nil
		}
	}
	return "", zerr.With(zerr.With(
		zerr.Wrap(domain.ErrFetchFailure, "branch or tag not found on remote"),
		"kind", "not-found"),
		"ref", ref.String(),
	)
}
