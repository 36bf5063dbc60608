package resume

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsSentinel(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir, "backup_1")
	assert.ErrorIs(t, err, apperrors.ErrResumeStateNotFound)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New("backup_1", []string{"/data"}, 10)
	require.NoError(t, s.Save(dir))

	loaded, err := Load(dir, "backup_1")
	require.NoError(t, err)
	assert.Equal(t, "backup_1", loaded.BackupID)
	assert.Equal(t, 10, loaded.TotalFiles)
}

func TestMarkUploadedPersists(t *testing.T) {
	dir := t.TempDir()
	s := New("backup_1", []string{"/data"}, 2)
	require.NoError(t, s.Save(dir))
	require.NoError(t, s.MarkUploaded(dir, "/data/a.txt"))

	loaded, err := Load(dir, "backup_1")
	require.NoError(t, err)
	assert.True(t, loaded.IsUploaded("/data/a.txt"))
	assert.False(t, loaded.IsUploaded("/data/b.txt"))
}

func TestFindResumableMatchesSourcePaths(t *testing.T) {
	dir := t.TempDir()
	s := New("backup_1", []string{"/data", "/photos"}, 5)
	require.NoError(t, s.Save(dir))

	found, err := FindResumable(dir, []string{"/data", "/photos"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "backup_1", found.BackupID)

	notFound, err := FindResumable(dir, []string{"/other"})
	require.NoError(t, err)
	assert.Nil(t, notFound)
}

func TestFindResumableSkipsStaleState(t *testing.T) {
	dir := t.TempDir()
	s := New("backup_1", []string{"/data"}, 5)
	s.LastUpdated = time.Now().Add(-8 * 24 * time.Hour)
	writeRawState(t, dir, s)

	found, err := FindResumable(dir, []string{"/data"})
	require.NoError(t, err)
	assert.Nil(t, found)
}

// writeRawState bypasses Save's LastUpdated refresh so tests can plant a
// state file that is already stale.
func writeRawState(t *testing.T, dir string, s *State) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(statePath(dir, s.BackupID), data, 0600))
}

func TestDeleteRemovesState(t *testing.T) {
	dir := t.TempDir()
	s := New("backup_1", nil, 0)
	require.NoError(t, s.Save(dir))

	require.NoError(t, Delete(dir, "backup_1"))
	_, err := Load(dir, "backup_1")
	assert.ErrorIs(t, err, apperrors.ErrResumeStateNotFound)

	require.NoError(t, Delete(dir, "backup_1")) // idempotent
}

func TestPurgeStaleRemovesOldStatesOnly(t *testing.T) {
	dir := t.TempDir()
	fresh := New("backup_fresh", []string{"/data"}, 1)
	require.NoError(t, fresh.Save(dir))

	stale := New("backup_stale", []string{"/data"}, 1)
	stale.LastUpdated = time.Now().Add(-10 * 24 * time.Hour)
	writeRawState(t, dir, stale)

	require.NoError(t, PurgeStale(dir))

	_, err := Load(dir, "backup_fresh")
	require.NoError(t, err)
	_, err = Load(dir, "backup_stale")
	assert.ErrorIs(t, err, apperrors.ErrResumeStateNotFound)
}
