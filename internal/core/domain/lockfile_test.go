package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/frost/internal/core/domain"
)

const (
	oldRev = "1111111111111111111111111111111111111111"
	newRev = "2222222222222222222222222222222222222222"
)

// depNode builds a resolved child node pinned to the given reference.
func depNode(id string, ref domain.FlakeRef) *domain.Dependencies {
	return &domain.Dependencies{
		Flake: domain.Flake{ID: domain.FlakeID(id), Ref: ref},
	}
}

func TestUpdateLockFile_PinsFreshGraph(t *testing.T) {
	lib := mustRef(t, "github:acme/lib/main")
	libPinned := lib
	libPinned.Rev = newRev

	top := &domain.Dependencies{
		Flake: domain.Flake{
			ID:       "app",
			Ref:      mustRef(t, "/work/app"),
			Requires: []domain.FlakeRef{lib},
		},
		FlakeDeps: []*domain.Dependencies{depNode("lib", libPinned)},
	}

	lock, err := domain.UpdateLockFile(top, nil)
	require.NoError(t, err)

	require.Contains(t, lock.FlakeEntries, domain.FlakeID("lib"))
	assert.Equal(t, newRev, lock.FlakeEntries["lib"].Ref.Rev)
}

func TestUpdateLockFile_KeepsSatisfiedPin(t *testing.T) {
	lib := mustRef(t, "github:acme/lib/main")
	oldPin := lib
	oldPin.Rev = oldRev
	newPin := lib
	newPin.Rev = newRev

	prev := domain.NewLockFile()
	prev.FlakeEntries["lib"] = domain.NewFlakeEntry(oldPin)

	// The resolver saw a newer revision, but the declared requirement still
	// contains the old pin, so it is kept.
	top := &domain.Dependencies{
		Flake: domain.Flake{
			ID:       "app",
			Ref:      mustRef(t, "/work/app"),
			Requires: []domain.FlakeRef{lib},
		},
		FlakeDeps: []*domain.Dependencies{depNode("lib", newPin)},
	}

	lock, err := domain.UpdateLockFile(top, prev)
	require.NoError(t, err)
	assert.Equal(t, oldRev, lock.FlakeEntries["lib"].Ref.Rev)
}

func TestUpdateLockFile_RepinsWhenRequirementChanged(t *testing.T) {
	oldPin := mustRef(t, "github:acme/lib/main")
	oldPin.Rev = oldRev

	// Requirement moved to a different branch; the old pin no longer
	// satisfies it.
	newReq := mustRef(t, "github:acme/lib/develop")
	newPin := newReq
	newPin.Rev = newRev

	prev := domain.NewLockFile()
	prev.FlakeEntries["lib"] = domain.NewFlakeEntry(oldPin)

	top := &domain.Dependencies{
		Flake: domain.Flake{
			ID:       "app",
			Ref:      mustRef(t, "/work/app"),
			Requires: []domain.FlakeRef{newReq},
		},
		FlakeDeps: []*domain.Dependencies{depNode("lib", newPin)},
	}

	lock, err := domain.UpdateLockFile(top, prev)
	require.NoError(t, err)
	assert.Equal(t, newRev, lock.FlakeEntries["lib"].Ref.Rev)
}

func TestUpdateLockFile_KeptPinKeepsSubtree(t *testing.T) {
	lib := mustRef(t, "github:acme/lib/main")
	libPin := lib
	libPin.Rev = oldRev
	subPin := mustRef(t, "github:acme/sub/"+oldRev)

	prevEntry := domain.NewFlakeEntry(libPin)
	prevEntry.FlakeEntries["sub"] = domain.NewFlakeEntry(subPin)
	prev := domain.NewLockFile()
	prev.FlakeEntries["lib"] = prevEntry

	// The resolved graph has a different subtree, but the kept pin carries
	// its previous subtree wholesale.
	libNode := depNode("lib", libPin)
	libNode.Flake.Requires = []domain.FlakeRef{mustRef(t, "github:acme/sub/"+newRev)}
	libNode.FlakeDeps = []*domain.Dependencies{depNode("sub", mustRef(t, "github:acme/sub/"+newRev))}

	top := &domain.Dependencies{
		Flake: domain.Flake{
			ID:       "app",
			Ref:      mustRef(t, "/work/app"),
			Requires: []domain.FlakeRef{lib},
		},
		FlakeDeps: []*domain.Dependencies{libNode},
	}

	lock, err := domain.UpdateLockFile(top, prev)
	require.NoError(t, err)

	kept := lock.FlakeEntries["lib"]
	require.Contains(t, kept.FlakeEntries, domain.FlakeID("sub"))
	assert.Equal(t, oldRev, kept.FlakeEntries["sub"].Ref.Rev)
}

func TestUpdateLockFile_MutableDependencyFails(t *testing.T) {
	dirty := mustRef(t, "/work/lib")

	top := &domain.Dependencies{
		Flake: domain.Flake{
			ID:       "app",
			Ref:      mustRef(t, "/work/app"),
			Requires: []domain.FlakeRef{dirty},
		},
		FlakeDeps: []*domain.Dependencies{depNode("lib", dirty)},
	}

	_, err := domain.UpdateLockFile(top, nil)
	require.ErrorIs(t, err, domain.ErrLockInvariant)
}

func TestUpdateLockFile_NonFlakeEntries(t *testing.T) {
	docsReq := mustRef(t, "github:acme/docs")
	docsPin := docsReq
	docsPin.Rev = newRev

	top := &domain.Dependencies{
		Flake: domain.Flake{
			ID:               "app",
			Ref:              mustRef(t, "/work/app"),
			NonFlakeRequires: map[string]domain.FlakeRef{"docs": docsReq},
		},
		NonFlakeDeps: []domain.NonFlake{{Alias: "docs", Ref: docsPin, Path: "/cache/docs"}},
	}

	lock, err := domain.UpdateLockFile(top, nil)
	require.NoError(t, err)
	assert.Equal(t, newRev, lock.NonFlakeEntries["docs"].Rev)

	// A second update with an unchanged requirement keeps the pin.
	docsPin2 := docsReq
	docsPin2.Rev = oldRev
	top.NonFlakeDeps = []domain.NonFlake{{Alias: "docs", Ref: docsPin2, Path: "/cache/docs"}}

	again, err := domain.UpdateLockFile(top, lock)
	require.NoError(t, err)
	assert.Equal(t, newRev, again.NonFlakeEntries["docs"].Rev)
}
