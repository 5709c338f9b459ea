package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/forum-importer/internal/forum"
	"github.com/iota-uz/forum-importer/internal/forum/direct"
)

// faultStore wraps a Store and fails config writes on demand.
type faultStore struct {
	forum.Store

	mu               sync.Mutex
	failConfigWrites bool
}

func (s *faultStore) setFailConfigWrites(v bool) {
	s.mu.Lock()
	s.failConfigWrites = v
	s.mu.Unlock()
}

func (s *faultStore) SetObject(ctx context.Context, key string, fields map[string]any) error {
	s.mu.Lock()
	fail := s.failConfigWrites
	s.mu.Unlock()
	if fail && key == "config" {
		return errors.New("storage gone away")
	}
	return s.Store.SetObject(ctx, key, fields)
}

func TestApplyTmpConfigMergesOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedConfig(t, map[string]any{
		"minimumPostLength": "8",
		"customSetting":     "keep-me",
	})

	imp := f.newImporter(t, testRunConfig(), NewDataset())
	require.NoError(t, imp.backupConfig(ctx))
	assert.True(t, f.snapshots.Exists())
	require.NoError(t, imp.applyTmpConfig(ctx))

	live, err := f.store.GetObject(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, "1", live["minimumPostLength"], "overlay wins over the backed-up value")
	assert.Equal(t, "keep-me", live["customSetting"], "non-overlay keys survive")
	assert.Equal(t, "1", live["allowGuestPosting"])
	assert.Equal(t, "", live["email:smtp:host"], "mail host blanked while auto-confirming")

	// the snapshot still holds the pre-overlay config
	backed, err := f.snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"minimumPostLength": "8",
		"customSetting":     "keep-me",
	}, backed)
}

func TestRestoreConfigDropsOverlayOnlyKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedConfig(t, map[string]any{"minimumPostLength": "8"})

	imp := f.newImporter(t, testRunConfig(), NewDataset())
	require.NoError(t, imp.backupConfig(ctx))
	require.NoError(t, imp.applyTmpConfig(ctx))

	imp.restoreConfig(ctx)

	live, err := f.store.GetObject(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"minimumPostLength": "8"}, live)
	assert.False(t, f.snapshots.Exists())
}

func TestRestoreConfigWithoutSnapshotWarns(t *testing.T) {
	f := newFixture(t)
	imp := f.newImporter(t, testRunConfig(), NewDataset())

	imp.restoreConfig(context.Background())

	assert.True(t, anyMessageContains(f.sink.messages(LevelWarn), "no snapshot file present"))
}

func TestRestoreConfigPushFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedConfig(t, map[string]any{"minimumPostLength": "8", "customSetting": "keep-me"})

	fs := &faultStore{Store: f.store}
	backend := direct.New(fs)
	imp, err := New(Options{
		Config:    testRunConfig(),
		Data:      NewDataset(),
		Store:     fs,
		Forum:     backend.Services(),
		Snapshots: f.snapshots,
		Bus:       f.bus,
	})
	require.NoError(t, err)

	require.NoError(t, imp.backupConfig(ctx))
	require.NoError(t, imp.applyTmpConfig(ctx))

	fs.setFailConfigWrites(true)
	imp.restoreConfig(ctx)

	// the run does not fail, the snapshot stays for a manual retry and the
	// full backed-up config is dumped for the operator
	assert.True(t, f.snapshots.Exists())
	errorMessages := f.sink.messages(LevelError)
	assert.True(t, anyMessageContains(errorMessages, "restoring the forum config"))
	assert.True(t, anyMessageContains(errorMessages, "apply it manually"))
	assert.True(t, anyMessageContains(errorMessages, "customSetting"))
}

func TestBackupConfigPersistsBeforeOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedConfig(t, map[string]any{"minimumPostLength": "8"})

	imp := f.newImporter(t, testRunConfig(), NewDataset())
	require.NoError(t, imp.backupConfig(ctx))

	// snapshot written before any change to the live config
	backed, err := f.snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"minimumPostLength": "8"}, backed)

	live, err := f.store.GetObject(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"minimumPostLength": "8"}, live)
}
