// Package domain contains the core domain models and business logic for
// flake dependency resolution.
package domain

import (
	"cmp"
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// RefVariant discriminates the closed set of flake reference locations.
type RefVariant int

const (
	// VariantAlias is an indirect reference that needs a registry lookup.
	VariantAlias RefVariant = iota + 1
	// VariantGitHub is a hosted repository fetched via the tarball mechanism.
	VariantGitHub
	// VariantGit is a generic Git or archive location.
	VariantGit
	// VariantPath is a local filesystem tree, possibly a working tree.
	VariantPath
)

// DirtyRev is the sentinel revision recorded on a path reference that points
// at a working tree rather than a pinned revision.
const DirtyRev = "0000000000000000000000000000000000000000"

// ManifestFileName is the name of the flake declaration file inside a
// fetched tree.
const ManifestFileName = "flake.yaml"

// LockFileName is the name of the lock file next to the manifest.
const LockFileName = "flake.lock"

// FlakeRef is a parsed, structured locator for a flake or source tree.
// Exactly one of the variant fields is populated, selected by Variant;
// Ref, Rev, NarHash and Subdir are shared across variants.
//
// FlakeRef values are immutable once parsed and are comparable, so they can
// be used directly as map keys.
type FlakeRef struct {
	Variant RefVariant

	// Alias is the registry alias name (VariantAlias).
	Alias string
	// Owner and Repo identify a hosted repository (VariantGitHub).
	Owner string
	Repo  string
	// URI is a Git or archive location (VariantGit).
	URI string
	// Path is a local filesystem path (VariantPath).
	Path string

	// Ref is an optional branch or tag name.
	Ref string
	// Rev is an optional commit hash, or DirtyRev for a working tree.
	Rev string
	// NarHash is the SRI content hash pinning an archive reference.
	NarHash string
	// Subdir is the directory holding the flake manifest, relative to the
	// fetched tree root. Empty means the root itself.
	Subdir string
}

var (
	aliasRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
	refRegex   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_./-]*$`)
	revRegex   = regexp.MustCompile(`^[0-9a-f]{40}$`)
	ownerRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)
	repoRegex  = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

// gitSchemes are the recognized transports for generic Git locations.
var gitSchemes = []string{"git+https", "git+ssh", "git", "file"}

// archiveSchemes may only carry archive URLs.
var archiveSchemes = []string{"https", "http"}

var archiveExtensions = []string{".zip", ".tar", ".tgz", ".tar.gz", ".tar.xz", ".tar.bz2", ".tar.zst"}

// IsArchiveURI reports whether uri points at a source archive rather than a
// repository.
func IsArchiveURI(uri string) bool {
	base := uri
	if idx := strings.IndexByte(base, '?'); idx >= 0 {
		base = base[:idx]
	}
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// TrimArchiveExt strips a recognized archive extension from name, if any.
func TrimArchiveExt(name string) string {
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// ParseFlakeRef parses a reference string into a FlakeRef. Relative
// filesystem paths are only accepted when allowRelative is set.
func ParseFlakeRef(s string, allowRelative bool) (FlakeRef, error) {
	if s == "" {
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
	}
	if rest, ok := strings.CutPrefix(s, "github:"); ok {
		return parseGitHub(s, rest)
	}
	for _, scheme := range gitSchemes {
		if strings.HasPrefix(s, scheme+"://") {
			return parseURL(s, false)
		}
	}
	for _, scheme := range archiveSchemes {
		if strings.HasPrefix(s, scheme+"://") {
			return parseURL(s, true)
		}
	}
	if strings.Contains(s, "://") {
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, "unrecognized scheme"), "ref", s)
	}
	if looksLikeAlias(s) {
		return parseAlias(s)
	}
	if strings.HasPrefix(s, "/") || allowRelative {
		return parsePath(s)
	}
	return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
}

func looksLikeAlias(s string) bool {
	segs := strings.Split(s, "/")
	if len(segs) < 1 || len(segs) > 3 {
		return false
	}
	return aliasRegex.MatchString(segs[0])
}

// parseAlias handles <alias>[/<ref-or-rev>[/<rev>]].
func parseAlias(s string) (FlakeRef, error) {
	segs := strings.Split(s, "/")
	ref := FlakeRef{Variant: VariantAlias, Alias: segs[0]}
	switch len(segs) {
	case 1:
	case 2:
		if revRegex.MatchString(segs[1]) {
			ref.Rev = segs[1]
		} else if refRegex.MatchString(segs[1]) {
			ref.Ref = segs[1]
		} else {
			return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
		}
	case 3:
		if !refRegex.MatchString(segs[1]) || !revRegex.MatchString(segs[2]) {
			return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
		}
		ref.Ref = segs[1]
		ref.Rev = segs[2]
	default:
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
	}
	return ref, nil
}

// parseGitHub handles github:<owner>/<repo>[/<rev-or-ref>].
func parseGitHub(s, rest string) (FlakeRef, error) {
	segs := strings.Split(rest, "/")
	if len(segs) < 2 || len(segs) > 3 || !ownerRegex.MatchString(segs[0]) || !repoRegex.MatchString(segs[1]) {
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
	}
	ref := FlakeRef{Variant: VariantGitHub, Owner: segs[0], Repo: segs[1]}
	if len(segs) == 3 {
		if revRegex.MatchString(segs[2]) {
			ref.Rev = segs[2]
		} else if refRegex.MatchString(segs[2]) {
			ref.Ref = segs[2]
		} else {
			return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
		}
	}
	return ref, nil
}

// parseURL handles <scheme>://... references, both Git transports and
// archives. archiveOnly is set for plain https/http, which may only point at
// archives.
func parseURL(s string, archiveOnly bool) (FlakeRef, error) {
	u, err := url.Parse(s)
	if err != nil {
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, err.Error()), "ref", s)
	}
	if archiveOnly && !IsArchiveURI(u.Path) {
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, "only archive URLs are supported for this scheme"), "ref", s)
	}

	query := u.Query()
	base := *u
	base.RawQuery = ""
	base.Fragment = ""

	ref := FlakeRef{Variant: VariantGit, URI: base.String()}
	if err := applyParams(&ref, query, s); err != nil {
		return FlakeRef{}, err
	}
	return ref, nil
}

// parsePath handles /<path> and, when permitted, relative paths. Absence of
// both ref and rev means "use the working tree", recorded as the dirty
// sentinel.
func parsePath(s string) (FlakeRef, error) {
	pathPart := s
	var query url.Values
	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		pathPart = s[:idx]
		var err error
		query, err = url.ParseQuery(s[idx+1:])
		if err != nil {
			return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, err.Error()), "ref", s)
		}
	}
	if pathPart == "" {
		return FlakeRef{}, zerr.With(zerr.Wrap(ErrBadFlakeRef, ""), "ref", s)
	}

	ref := FlakeRef{Variant: VariantPath, Path: pathPart}
	if err := applyParams(&ref, query, s); err != nil {
		return FlakeRef{}, err
	}
	if ref.Ref == "" && ref.Rev == "" {
		ref.Rev = DirtyRev
	}
	return ref, nil
}

// applyParams validates and applies the shared ref/rev/dir/hash query
// parameters.
func applyParams(ref *FlakeRef, query url.Values, raw string) error {
	if v := query.Get("ref"); v != "" {
		if !refRegex.MatchString(v) {
			return zerr.With(zerr.Wrap(ErrBadFlakeRef, "invalid ref parameter"), "ref", raw)
		}
		ref.Ref = v
	}
	if v := query.Get("rev"); v != "" {
		if !revRegex.MatchString(v) {
			return zerr.With(zerr.Wrap(ErrBadFlakeRef, "invalid rev parameter"), "ref", raw)
		}
		ref.Rev = v
	}
	if v := query.Get("hash"); v != "" {
		ref.NarHash = v
	}
	if v := query.Get("dir"); v != "" {
		if strings.HasPrefix(v, "/") || path.Clean(v) != v || strings.HasPrefix(v, "..") {
			return zerr.With(zerr.Wrap(ErrBadFlakeRef, "invalid dir parameter"), "ref", raw)
		}
		ref.Subdir = v
	}
	return nil
}

// String renders the reference in its canonical form. The result re-parses
// to an equal FlakeRef.
func (r FlakeRef) String() string {
	switch r.Variant {
	case VariantAlias:
		s := r.Alias
		if r.Ref != "" {
			s += "/" + r.Ref
		}
		if r.Rev != "" {
			s += "/" + r.Rev
		}
		return s
	case VariantGitHub:
		s := "github:" + r.Owner + "/" + r.Repo
		if r.Rev != "" {
			s += "/" + r.Rev
		} else if r.Ref != "" {
			s += "/" + r.Ref
		}
		return s
	case VariantGit:
		return r.URI + r.renderParams(false)
	case VariantPath:
		return r.Path + r.renderParams(true)
	default:
		return ""
	}
}

func (r FlakeRef) renderParams(isPath bool) string {
	var parts []string
	if r.Ref != "" {
		parts = append(parts, "ref="+url.QueryEscape(r.Ref))
	}
	if r.Rev != "" && !(isPath && r.Rev == DirtyRev) {
		parts = append(parts, "rev="+r.Rev)
	}
	if r.NarHash != "" {
		parts = append(parts, "hash="+url.QueryEscape(r.NarHash))
	}
	if r.Subdir != "" {
		parts = append(parts, "dir="+url.QueryEscape(r.Subdir))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// Key returns the canonical identity string used for cache and cycle maps.
func (r FlakeRef) Key() string {
	return r.String()
}

// IsDirect reports whether the reference can be fetched without a registry
// lookup.
func (r FlakeRef) IsDirect() bool {
	return r.Variant != VariantAlias
}

// IsImmutable reports whether the reference pins exact content: a concrete
// commit hash, or a content hash for archive references.
func (r FlakeRef) IsImmutable() bool {
	if r.NarHash != "" {
		return true
	}
	return r.Rev != "" && r.Rev != DirtyRev
}

// IsDirty reports whether the reference denotes a working tree in
// potentially uncommitted state.
func (r FlakeRef) IsDirty() bool {
	return r.Variant == VariantPath && r.Rev == DirtyRev
}

// BaseRef returns a copy with ref and rev cleared: the unpinned form of this
// reference.
func (r FlakeRef) BaseRef() FlakeRef {
	base := r
	base.Ref = ""
	base.Rev = ""
	return base
}

// SameLocation reports whether both references point at the same location,
// ignoring ref, rev, hash and subdir.
func (r FlakeRef) SameLocation(other FlakeRef) bool {
	if r.Variant != other.Variant {
		return false
	}
	switch r.Variant {
	case VariantAlias:
		return r.Alias == other.Alias
	case VariantGitHub:
		return r.Owner == other.Owner && r.Repo == other.Repo
	case VariantGit:
		return r.URI == other.URI
	case VariantPath:
		return r.Path == other.Path
	default:
		return false
	}
}

// Contains reports whether other is at least as specific as r: same
// location, and every field r pins (ref, rev, subdir) has the identical
// value in other. Fields r leaves unset are unconstrained.
//
// Contains is reflexive and transitive; r.BaseRef().Contains(r) always
// holds. It decides whether a previously locked entry still satisfies a
// currently declared requirement.
func (r FlakeRef) Contains(other FlakeRef) bool {
	if !r.SameLocation(other) {
		return false
	}
	if r.Ref != "" && r.Ref != other.Ref {
		return false
	}
	if r.Rev != "" && r.Rev != other.Rev {
		return false
	}
	if r.Subdir != "" && r.Subdir != other.Subdir {
		return false
	}
	return true
}

// Compare orders references structurally over (variant, location, ref, rev,
// subdir), making FlakeRef usable as a sorted-map key.
func (r FlakeRef) Compare(other FlakeRef) int {
	if c := cmp.Compare(r.Variant, other.Variant); c != 0 {
		return c
	}
	fields := [][2]string{
		{r.Alias, other.Alias},
		{r.Owner, other.Owner},
		{r.Repo, other.Repo},
		{r.URI, other.URI},
		{r.Path, other.Path},
		{r.Ref, other.Ref},
		{r.Rev, other.Rev},
		{r.Subdir, other.Subdir},
	}
	for _, f := range fields {
		if c := strings.Compare(f[0], f[1]); c != 0 {
			return c
		}
	}
	return 0
}
