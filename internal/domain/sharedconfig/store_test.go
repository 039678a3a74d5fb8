package sharedconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anon-safe/safe-launcher/internal/domain/resource"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/nfs"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
	tu "github.com/anon-safe/safe-launcher/internal/testutil"
)

type fixture struct {
	nfs       *nfs.MemoryStore
	resources *resource.Manager
	store     *Store
}

func newFixture(t *testing.T, provision bool) *fixture {
	t.Helper()
	mem := nfs.NewMemoryStore()
	resources := resource.NewManager(mem, logging.NewNop())
	f := &fixture{
		nfs:       mem,
		resources: resources,
		store:     New(mem, resources, DefaultNames(), logging.NewNop()),
	}
	if provision {
		require.NoError(t, f.store.Provision(context.Background()))
	}
	return f
}

func (f *fixture) allocate(t *testing.T, name string) string {
	t.Helper()
	alloc, err := f.resources.AllocateOrReuse(context.Background(), name, nil)
	require.NoError(t, err)
	return alloc.Key
}

func TestFetchUnprovisioned(t *testing.T) {
	f := newFixture(t, false)

	_, _, err := f.store.Fetch(context.Background())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFetchMissingFile(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.nfs.CreateConfigDirectory(context.Background(), DefaultNames().Directory)
	require.NoError(t, err)

	_, _, err = f.store.Fetch(context.Background())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestProvisionIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.store.Upsert(ctx, types.SharedAppConfig{AppID: "app_a", AppName: "a", ReferenceCount: 1}))
	require.NoError(t, f.store.Provision(ctx))

	rows, _, err := f.store.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFetchEmptyFile(t *testing.T) {
	f := newFixture(t, true)

	rows, dir, err := f.store.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Equal(t, DefaultNames().Directory, dir.Info.Name)
}

func TestUpsertAppendsAndReplaces(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	a := types.SharedAppConfig{AppID: "app_a", AppName: "Editor", ReferenceCount: 1, AppRootDirKey: "k1"}
	b := types.SharedAppConfig{AppID: "app_b", AppName: "Viewer", ReferenceCount: 1, AppRootDirKey: "k2", DriveAccess: true}

	require.NoError(t, f.store.Upsert(ctx, a))
	require.NoError(t, f.store.Upsert(ctx, b))

	a.ReferenceCount = 2
	require.NoError(t, f.store.Upsert(ctx, a))

	rows, _, err := f.store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.SharedAppConfig{a, b}, rows)
}

func TestRemoveOrDecrementUnknownID(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.store.RemoveOrDecrement(context.Background(), "app_missing")
	assert.ErrorIs(t, err, types.ErrLogic)
}

func TestRemoveOrDecrementCountsDown(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	key := f.allocate(t, "Editor")
	row := types.SharedAppConfig{AppID: "app_a", AppName: "Editor", ReferenceCount: 3, AppRootDirKey: key}
	require.NoError(t, f.store.Upsert(ctx, row))

	for want := uint32(2); want >= 1; want-- {
		removal, err := f.store.RemoveOrDecrement(ctx, "app_a")
		require.NoError(t, err)
		assert.False(t, removal.Reclaimed)
		assert.Equal(t, want, removal.Row.ReferenceCount)

		_, err = f.nfs.GetDirectory(ctx, key)
		require.NoError(t, err, "directory must survive while referenced")
	}

	removal, err := f.store.RemoveOrDecrement(ctx, "app_a")
	require.NoError(t, err)
	assert.True(t, removal.Reclaimed)

	rows, _, err := f.store.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.nfs.GetDirectory(ctx, key)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRemoveOrDecrementToleratesMissingDirectory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	key := f.allocate(t, "Editor")
	require.NoError(t, f.store.Upsert(ctx, types.SharedAppConfig{AppID: "app_a", AppName: "Editor", ReferenceCount: 1, AppRootDirKey: key}))
	require.NoError(t, f.resources.Reclaim(ctx, key))

	removal, err := f.store.RemoveOrDecrement(ctx, "app_a")
	require.NoError(t, err)
	assert.True(t, removal.Reclaimed)
}

func TestRemoveOrDecrementKeepsRowWhenReclaimFails(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	failing := tu.NewFailingStore(f.nfs)
	store := New(failing, resource.NewManager(failing, logging.NewNop()), DefaultNames(), logging.NewNop())

	key := f.allocate(t, "Editor")
	row := types.SharedAppConfig{AppID: "app_a", AppName: "Editor", ReferenceCount: 1, AppRootDirKey: key}
	require.NoError(t, store.Upsert(ctx, row))

	failing.FailDelete(errors.New("store offline"))
	removal, err := store.RemoveOrDecrement(ctx, "app_a")
	assert.ErrorContains(t, err, "store offline")
	assert.Equal(t, Removal{}, removal)

	rows, _, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.SharedAppConfig{row}, rows)
	_, err = f.nfs.GetDirectory(ctx, key)
	require.NoError(t, err, "directory must survive a failed reclaim")

	failing.FailDelete(nil)
	removal, err = store.RemoveOrDecrement(ctx, "app_a")
	require.NoError(t, err)
	assert.True(t, removal.Reclaimed)

	rows, _, err = store.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRemoveOrDecrementRetriesAfterFailedWrite(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	failing := tu.NewFailingStore(f.nfs)
	store := New(failing, resource.NewManager(failing, logging.NewNop()), DefaultNames(), logging.NewNop())

	key := f.allocate(t, "Editor")
	row := types.SharedAppConfig{AppID: "app_a", AppName: "Editor", ReferenceCount: 1, AppRootDirKey: key}
	require.NoError(t, store.Upsert(ctx, row))

	failing.FailOverwrite(errors.New("store offline"))
	removal, err := store.RemoveOrDecrement(ctx, "app_a")
	assert.ErrorContains(t, err, "store offline")
	assert.Equal(t, Removal{}, removal)

	// The directory is gone but the row stays for the retry
	rows, _, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.SharedAppConfig{row}, rows)
	_, err = f.nfs.GetDirectory(ctx, key)
	assert.ErrorIs(t, err, types.ErrNotFound)

	failing.FailOverwrite(nil)
	removal, err = store.RemoveOrDecrement(ctx, "app_a")
	require.NoError(t, err)
	assert.True(t, removal.Reclaimed)

	rows, _, err = store.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRemoveKeepsOtherRows(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	a := types.SharedAppConfig{AppID: "app_a", AppName: "Editor", ReferenceCount: 1, AppRootDirKey: f.allocate(t, "Editor")}
	b := types.SharedAppConfig{AppID: "app_b", AppName: "Viewer", ReferenceCount: 1, AppRootDirKey: f.allocate(t, "Viewer")}
	require.NoError(t, f.store.Upsert(ctx, a))
	require.NoError(t, f.store.Upsert(ctx, b))

	_, err := f.store.RemoveOrDecrement(ctx, "app_a")
	require.NoError(t, err)

	rows, _, err := f.store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.SharedAppConfig{b}, rows)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode([]byte("{not json"))
	assert.Error(t, err)

	rows, err := decode([]byte("null"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
