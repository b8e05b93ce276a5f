package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/frost/internal/core/domain"
)

const rev = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestParseFlakeRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.FlakeRef
	}{
		{
			name: "bare alias",
			in:   "lib",
			want: domain.FlakeRef{Variant: domain.VariantAlias, Alias: "lib"},
		},
		{
			name: "alias with branch",
			in:   "lib/main",
			want: domain.FlakeRef{Variant: domain.VariantAlias, Alias: "lib", Ref: "main"},
		},
		{
			name: "alias with rev",
			in:   "lib/" + rev,
			want: domain.FlakeRef{Variant: domain.VariantAlias, Alias: "lib", Rev: rev},
		},
		{
			name: "alias with branch and rev",
			in:   "lib/main/" + rev,
			want: domain.FlakeRef{Variant: domain.VariantAlias, Alias: "lib", Ref: "main", Rev: rev},
		},
		{
			name: "github",
			in:   "github:acme/lib",
			want: domain.FlakeRef{Variant: domain.VariantGitHub, Owner: "acme", Repo: "lib"},
		},
		{
			name: "github with branch",
			in:   "github:acme/lib/main",
			want: domain.FlakeRef{Variant: domain.VariantGitHub, Owner: "acme", Repo: "lib", Ref: "main"},
		},
		{
			name: "github with rev",
			in:   "github:acme/lib/" + rev,
			want: domain.FlakeRef{Variant: domain.VariantGitHub, Owner: "acme", Repo: "lib", Rev: rev},
		},
		{
			name: "git https with params",
			in:   "git+https://example.com/lib.git?ref=main&rev=" + rev,
			want: domain.FlakeRef{
				Variant: domain.VariantGit,
				URI:     "git+https://example.com/lib.git",
				Ref:     "main",
				Rev:     rev,
			},
		},
		{
			name: "git ssh",
			in:   "git+ssh://git@example.com/lib.git",
			want: domain.FlakeRef{Variant: domain.VariantGit, URI: "git+ssh://git@example.com/lib.git"},
		},
		{
			name: "archive with subdir",
			in:   "https://example.com/lib.tar.gz?dir=pkg",
			want: domain.FlakeRef{
				Variant: domain.VariantGit,
				URI:     "https://example.com/lib.tar.gz",
				Subdir:  "pkg",
			},
		},
		{
			name: "absolute path defaults to working tree",
			in:   "/src/lib",
			want: domain.FlakeRef{Variant: domain.VariantPath, Path: "/src/lib", Rev: domain.DirtyRev},
		},
		{
			name: "absolute path with rev",
			in:   "/src/lib?rev=" + rev,
			want: domain.FlakeRef{Variant: domain.VariantPath, Path: "/src/lib", Rev: rev},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseFlakeRef(tt.in, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlakeRef_Errors(t *testing.T) {
	tests := []string{
		"",
		"github:acme",
		"github:acme/lib/not..a/valid",
		"hg://example.com/repo",
		"https://example.com/not-an-archive",
		"lib/main/short-rev",
		"/src/lib?rev=notahash",
		"/src/lib?dir=/absolute",
		"/src/lib?dir=../escape",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := domain.ParseFlakeRef(in, false)
			require.ErrorIs(t, err, domain.ErrBadFlakeRef)
		})
	}
}

func TestParseFlakeRef_RelativePath(t *testing.T) {
	_, err := domain.ParseFlakeRef("./lib", false)
	require.ErrorIs(t, err, domain.ErrBadFlakeRef)

	ref, err := domain.ParseFlakeRef("./lib", true)
	require.NoError(t, err)
	assert.Equal(t, domain.VariantPath, ref.Variant)
	assert.Equal(t, "./lib", ref.Path)
	assert.True(t, ref.IsDirty())
}

func TestString_RoundTrip(t *testing.T) {
	inputs := []string{
		"lib",
		"lib/main",
		"lib/main/" + rev,
		"github:acme/lib",
		"github:acme/lib/main",
		"github:acme/lib/" + rev,
		"git+https://example.com/lib.git?ref=main&rev=" + rev,
		"https://example.com/lib.tar.gz?dir=pkg",
		"/src/lib",
		"/src/lib?rev=" + rev,
		"/src/lib?ref=main&dir=pkg",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			ref, err := domain.ParseFlakeRef(in, false)
			require.NoError(t, err)

			again, err := domain.ParseFlakeRef(ref.String(), false)
			require.NoError(t, err)
			assert.Equal(t, ref, again)
		})
	}
}

func TestIsImmutable(t *testing.T) {
	tests := []struct {
		name string
		ref  domain.FlakeRef
		want bool
	}{
		{
			name: "branch only",
			ref:  domain.FlakeRef{Variant: domain.VariantGitHub, Owner: "a", Repo: "b", Ref: "main"},
			want: false,
		},
		{
			name: "pinned rev",
			ref:  domain.FlakeRef{Variant: domain.VariantGitHub, Owner: "a", Repo: "b", Rev: rev},
			want: true,
		},
		{
			name: "dirty sentinel",
			ref:  domain.FlakeRef{Variant: domain.VariantPath, Path: "/x", Rev: domain.DirtyRev},
			want: false,
		},
		{
			name: "content hash only",
			ref:  domain.FlakeRef{Variant: domain.VariantGit, URI: "https://e.com/a.tar.gz", NarHash: "sha256-xxx"},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.IsImmutable())
		})
	}
}

func TestContains(t *testing.T) {
	pinned, err := domain.ParseFlakeRef("github:acme/lib/"+rev, false)
	require.NoError(t, err)
	branch, err := domain.ParseFlakeRef("github:acme/lib/main", false)
	require.NoError(t, err)
	bare, err := domain.ParseFlakeRef("github:acme/lib", false)
	require.NoError(t, err)
	other, err := domain.ParseFlakeRef("github:acme/other", false)
	require.NoError(t, err)

	// Reflexive, and a base ref contains any of its pinnings.
	assert.True(t, pinned.Contains(pinned))
	assert.True(t, bare.Contains(pinned))
	assert.True(t, bare.Contains(branch))
	assert.True(t, pinned.BaseRef().Contains(pinned))

	// A pinned requirement is not satisfied by a different pin.
	assert.False(t, pinned.Contains(bare))
	assert.False(t, branch.Contains(pinned))
	assert.False(t, bare.Contains(other))

	// Branch requirement is satisfied by the same branch pinned to a rev.
	pinnedBranch := branch
	pinnedBranch.Rev = rev
	assert.True(t, branch.Contains(pinnedBranch))
}

func TestSameLocation(t *testing.T) {
	a, err := domain.ParseFlakeRef("github:acme/lib/main", false)
	require.NoError(t, err)
	b, err := domain.ParseFlakeRef("github:acme/lib/"+rev, false)
	require.NoError(t, err)
	c, err := domain.ParseFlakeRef("github:acme/other", false)
	require.NoError(t, err)

	assert.True(t, a.SameLocation(b))
	assert.False(t, a.SameLocation(c))
}

func TestCompare(t *testing.T) {
	a, err := domain.ParseFlakeRef("github:acme/a", false)
	require.NoError(t, err)
	b, err := domain.ParseFlakeRef("github:acme/b", false)
	require.NoError(t, err)

	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}
