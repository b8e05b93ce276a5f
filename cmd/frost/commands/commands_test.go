package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/frost/cmd/frost/commands"
	"go.trai.ch/frost/internal/app"
	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/frost/internal/core/ports/mocks"
	"go.trai.ch/frost/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

const rev = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type fixture struct {
	registry     *mocks.MockRegistryStore
	userRegistry *mocks.MockRegistryStore
	locks        *mocks.MockLockStore
	fetcher      *mocks.MockFetcher
	evaluator    *mocks.MockEvaluator
	cli          *commands.CLI
	out          *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	vertex := mocks.NewMockVertex(ctrl)
	vertex.EXPECT().Complete(gomock.Any()).AnyTimes()
	vertex.EXPECT().Cached().AnyTimes()
	telemetry := mocks.NewMockTelemetry(ctrl)
	telemetry.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ctx, vertex
		}).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	f := &fixture{
		registry:     mocks.NewMockRegistryStore(ctrl),
		userRegistry: mocks.NewMockRegistryStore(ctrl),
		locks:        mocks.NewMockLockStore(ctrl),
		fetcher:      mocks.NewMockFetcher(ctrl),
		evaluator:    mocks.NewMockEvaluator(ctrl),
		out:          &bytes.Buffer{},
	}

	res := resolver.New(f.fetcher, f.evaluator, f.locks, telemetry, logger, 2)
	a := app.New(f.registry, f.userRegistry, "/tmp/registry.json", f.locks, res, logger)
	f.cli = commands.New(a)
	f.cli.SetOutput(f.out)
	return f
}

func mustRef(t *testing.T, s string) domain.FlakeRef {
	t.Helper()
	ref, err := domain.ParseFlakeRef(s, true)
	require.NoError(t, err)
	return ref
}

func TestResolve_PrintsDependencyTree(t *testing.T) {
	f := newFixture(t)

	f.registry.EXPECT().Load().Return(domain.NewRegistry(), nil)

	top := mustRef(t, "github:acme/app/"+rev)
	lib := mustRef(t, "github:acme/lib/"+rev)
	f.fetcher.EXPECT().Fetch(gomock.Any(), top).
		Return(top, ports.FetchResult{Path: "/cache/app", Rev: rev}, nil)
	f.evaluator.EXPECT().Load("/cache/app", "").Return(ports.Evaluation{
		ID:       "app",
		Requires: []domain.FlakeRef{lib},
	}, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), lib).
		Return(lib, ports.FetchResult{Path: "/cache/lib", Rev: rev}, nil)
	f.evaluator.EXPECT().Load("/cache/lib", "").Return(ports.Evaluation{ID: "lib"}, nil)
	f.locks.EXPECT().Load(gomock.Any()).Return(domain.NewLockFile(), nil).AnyTimes()

	f.cli.SetArgs([]string{"resolve", top.String()})
	require.NoError(t, f.cli.Execute(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "app: github:acme/app/"+rev)
	assert.Contains(t, out, "  lib: github:acme/lib/"+rev)
}

func TestRegistryList_PrintsEntries(t *testing.T) {
	f := newFixture(t)

	reg := domain.NewRegistry()
	reg.Add(mustRef(t, "lib"), mustRef(t, "github:acme/lib"))
	f.registry.EXPECT().Load().Return(reg, nil)

	f.cli.SetArgs([]string{"registry", "list"})
	require.NoError(t, f.cli.Execute(context.Background()))

	assert.Contains(t, f.out.String(), "lib -> github:acme/lib")
}

func TestRegistryAdd_InvalidAliasFails(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"registry", "add", "github:acme/lib", "github:acme/lib2"})
	err := f.cli.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrBadFlakeRef)
}

func TestVersion(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"version"})
	require.NoError(t, f.cli.Execute(context.Background()))
	assert.True(t, strings.Contains(f.out.String(), "dev"))
}

func TestRoot_Help(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"--help"})
	require.NoError(t, f.cli.Execute(context.Background()))
	assert.Contains(t, f.out.String(), "frost")
}
