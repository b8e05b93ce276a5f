package lockstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/frost/internal/adapters/lockstore"
	"go.trai.ch/frost/internal/core/domain"
)

const rev = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestLoad_MissingFileYieldsEmptyLock(t *testing.T) {
	lock, err := lockstore.New().Load(filepath.Join(t.TempDir(), domain.LockFileName))
	require.NoError(t, err)
	assert.True(t, lock.IsEmpty())
}

func TestSaveLoad_RoundTripKeepsRefAndRev(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockFileName)

	// A pin that carries both the symbolic branch name and the revision.
	libRef, err := domain.ParseFlakeRef("github:acme/lib/main", false)
	require.NoError(t, err)
	libRef.Rev = rev

	nested := domain.NewFlakeEntry(domain.FlakeRef{
		Variant: domain.VariantGit,
		URI:     "git+https://example.com/dep.git",
		Rev:     rev,
		Subdir:  "pkg",
	})

	entry := domain.NewFlakeEntry(libRef)
	entry.FlakeEntries["dep"] = nested
	entry.NonFlakeEntries["docs"] = domain.FlakeRef{
		Variant: domain.VariantGitHub,
		Owner:   "acme",
		Repo:    "docs",
		Rev:     rev,
	}

	lock := domain.NewLockFile()
	lock.FlakeEntries["lib"] = entry

	store := lockstore.New()
	require.NoError(t, store.Save(lock, path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.Contains(t, loaded.FlakeEntries, domain.FlakeID("lib"))

	got := loaded.FlakeEntries["lib"]
	assert.Equal(t, "main", got.Ref.Ref)
	assert.Equal(t, rev, got.Ref.Rev)

	require.Contains(t, got.FlakeEntries, domain.FlakeID("dep"))
	assert.Equal(t, nested.Ref, got.FlakeEntries["dep"].Ref)
	assert.Equal(t, lock.FlakeEntries["lib"].NonFlakeEntries, got.NonFlakeEntries)
}

func TestLoad_RejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o600))

	_, err := lockstore.New().Load(path)
	require.ErrorIs(t, err, domain.ErrLockReadFailed)
}

func TestLoad_RejectsUnknownRefType(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "version": 1,
  "flakes": {"x": {"ref": {"type": "hg", "uri": "https://example.com"}}}
}`), 0o600))

	_, err := lockstore.New().Load(path)
	require.ErrorIs(t, err, domain.ErrLockReadFailed)
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockFileName)
	store := lockstore.New()

	lock := domain.NewLockFile()
	lock.NonFlakeEntries["docs"] = domain.FlakeRef{
		Variant: domain.VariantGitHub, Owner: "acme", Repo: "docs", Rev: rev,
	}
	require.NoError(t, store.Save(lock, path))
	require.NoError(t, store.Save(domain.NewLockFile(), path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}
