package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
)

// archiveFetcher materializes source archives, downloaded over HTTP or read
// from a local file URL, and pins them by SRI content hash.
type archiveFetcher struct {
	cacheDir string
	client   *http.Client
}

func (f *archiveFetcher) fetch(ctx context.Context, ref domain.FlakeRef) (domain.FlakeRef, ports.FetchResult, error) {
	tree, hash, err := f.fetchURL(ctx, ref.URI, ref.NarHash, 0)
	if err != nil {
		return domain.FlakeRef{}, ports.FetchResult{}, zerr.With(err, "ref", ref.String())
	}

	pinned := ref
	pinned.NarHash = hash
	return pinned, ports.FetchResult{Path: tree, NarHash: hash}, nil
}

// fetchURL retrieves and unpacks the archive at url, verifying it against
// wantHash when set. It returns the unpacked tree and the computed SRI hash.
// stripComponents is forwarded to tar for archives with a wrapping directory.
func (f *archiveFetcher) fetchURL(ctx context.Context, url, wantHash string, stripComponents int) (string, string, error) {
	body, err := f.open(ctx, url)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(filepath.Join(f.cacheDir, "archive"), dirPerm); err != nil {
		return "", "", zerr.Wrap(err, "failed to create archive cache directory")
	}
	tmp, err := os.CreateTemp(filepath.Join(f.cacheDir, "archive"), "download-*")
	if err != nil {
		return "", "", zerr.Wrap(err, "failed to create archive scratch file")
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	digest := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, digest), body); err != nil {
		return "", "", zerr.With(zerr.Wrap(domain.ErrFetchFailure, "archive download interrupted"), "kind", "network")
	}
	hash := "sha256-" + base64.StdEncoding.EncodeToString(digest.Sum(nil))

	if wantHash != "" && wantHash != hash {
		return "", "", zerr.With(zerr.With(zerr.With(
			zerr.Wrap(domain.ErrFetchFailure, "archive content hash mismatch"),
			"kind", "hash-mismatch"),
			"expected", wantHash),
			"actual", hash,
		)
	}

	tree := filepath.Join(f.cacheDir, "tree", cacheKey(url, hash))
	if _, err := os.Stat(tree); err == nil {
		return tree, hash, nil
	}
	if err := f.unpack(ctx, tmp.Name(), url, tree, stripComponents); err != nil {
		return "", "", err
	}
	return tree, hash, nil
}

// open returns the raw archive bytes. file URLs are read straight from disk;
// everything else goes through the HTTP client.
func (f *archiveFetcher) open(ctx context.Context, url string) (io.ReadCloser, error) {
	if path, ok := strings.CutPrefix(stripQuery(url), "file://"); ok {
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, zerr.With(zerr.Wrap(domain.ErrFetchFailure, "archive not found"), "kind", "not-found")
			}
			return nil, zerr.With(zerr.Wrap(domain.ErrFetchFailure, "failed to open archive"), "kind", "unknown")
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to build archive request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrFetchFailure, "archive download failed"), "kind", "network")
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, zerr.With(zerr.Wrap(domain.ErrFetchFailure, "archive not found"), "kind", "not-found")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, zerr.With(zerr.With(
			zerr.Wrap(domain.ErrFetchFailure, "archive download failed"),
			"kind", "network"),
			"status", resp.Status,
		)
	}
	return resp.Body, nil
}

// unpack extracts the downloaded archive into tree, going through a scratch
// directory so partially extracted trees never become visible.
func (f *archiveFetcher) unpack(ctx context.Context, file, url, tree string, stripComponents int) error {
	tmp := tree + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return zerr.Wrap(err, "failed to clear unpack scratch directory")
	}
	if err := os.MkdirAll(tmp, dirPerm); err != nil {
		return zerr.Wrap(err, "failed to create unpack directory")
	}

	var cmd *exec.Cmd
	if strings.HasSuffix(stripQuery(url), ".zip") {
		cmd = exec.CommandContext(ctx, "unzip", "-q", file, "-d", tmp)
	} else {
		args := []string{"-xf", file, "-C", tmp}
		if stripComponents > 0 {
			args = append(args, "--strip-components", strconv.Itoa(stripComponents))
		}
		cmd = exec.CommandContext(ctx, "tar", args...)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(tmp)
		return zerr.With(zerr.With(
			zerr.Wrap(domain.ErrFetchFailure, "archive extraction failed"),
			"kind", "unknown"),
			"output", strings.TrimSpace(string(out)),
		)
	}

	if err := os.Rename(tmp, tree); err != nil {
		return zerr.Wrap(err, "failed to move unpacked tree into place")
	}
	return nil
}

func stripQuery(url string) string {
	if idx := strings.IndexByte(url, '?'); idx >= 0 {
		return url[:idx]
	}
	return url
}
