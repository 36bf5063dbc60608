package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skylock/skylock/internal/compress"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T, source, stateDir, backupRoot, backupID string) Options {
	t.Helper()
	backend, err := storage.NewLocalBackend(backupRoot)
	require.NoError(t, err)
	return Options{
		BackupID:          backupID,
		SourcePaths:       []string{source},
		Workers:           2,
		BackupRoot:        "backups",
		StateDir:          stateDir,
		MasterKey:         crypto.NewSecretBytes(make([]byte, 32)),
		Suite:             crypto.SuiteAES256GCM,
		EncryptionVersion: manifest.EncryptionV2,
		CompressionLevel:  compress.LevelBalanced,
		Backend:           backend,
	}
}

func TestRunFullBackupUploadsEveryFile(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "b.txt"), []byte("world"), 0644))

	opts := testOptions(t, source, t.TempDir(), t.TempDir(), "backup_1")
	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 2, result.Manifest.TotalFiles)
	for _, entry := range result.Manifest.Files {
		assert.True(t, entry.Encrypted)
		assert.NotEmpty(t, entry.RemotePath)
		assert.NotEmpty(t, entry.Hash)
	}
}

func TestRunIncrementalSkipsUnchangedFiles(t *testing.T) {
	source := t.TempDir()
	stateDir := t.TempDir()
	backupRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "b.txt"), []byte("world"), 0644))

	opts1 := testOptions(t, source, stateDir, backupRoot, "backup_1")
	_, err := Run(context.Background(), opts1)
	require.NoError(t, err)

	// Modify only one file.
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.txt"), []byte("hello again"), 0644))

	opts2 := testOptions(t, source, stateDir, backupRoot, "backup_2")
	opts2.Incremental = true
	result2, err := Run(context.Background(), opts2)
	require.NoError(t, err)

	assert.Equal(t, "backup_1", result2.Manifest.BaseBackupID)
	assert.Equal(t, 2, result2.Manifest.TotalFiles)

	var aEntry, bEntry manifest.FileEntry
	for _, e := range result2.Manifest.Files {
		if filepath.Base(e.LocalPath) == "a.txt" {
			aEntry = e
		}
		if filepath.Base(e.LocalPath) == "b.txt" {
			bEntry = e
		}
	}
	assert.NotEmpty(t, aEntry.RemotePath)
	assert.NotEmpty(t, bEntry.RemotePath)
}

func TestRunFallsBackToFullBackupWithoutPreviousIndex(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.txt"), []byte("hello"), 0644))

	opts := testOptions(t, source, t.TempDir(), t.TempDir(), "backup_1")
	opts.Incremental = true // no previous index exists yet
	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Manifest.TotalFiles)
	assert.Empty(t, result.Manifest.BaseBackupID)
}

func TestRunStrictModeFailsOnPerFileError(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.txt"), []byte("hello"), 0644))

	opts := testOptions(t, source, t.TempDir(), t.TempDir(), "backup_1")
	opts.Strict = true
	// An unknown cipher suite makes every file's encryption fail.
	opts.Suite = crypto.CipherSuite("unsupported")
	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Failures, 1)
}
