package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skylock/skylock/internal/compress"
	"github.com/skylock/skylock/internal/container"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFileConfig(t *testing.T, backend storage.Backend) FileConfig {
	t.Helper()
	return FileConfig{
		BackupID: "backup_1", BackupRoot: "backups",
		MasterKey: crypto.NewSecretBytes(make([]byte, 32)),
		Suite:     crypto.SuiteAES256GCM, HashAlgorithm: manifest.HashHMACSHA256,
		CompressionLevel: compress.LevelBalanced, Backend: backend, Throttle: NewThrottle(0),
	}
}

func TestProcessFileUploadsAndRecordsEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello pipeline"), 0644))

	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	cfg := testFileConfig(t, backend)

	entry, err := ProcessFile(context.Background(), cfg, path, "note.txt")
	require.NoError(t, err)
	assert.True(t, entry.Encrypted)
	assert.False(t, entry.Compressed)
	assert.NotEmpty(t, entry.Hash)

	exists, err := backend.Exists(context.Background(), entry.RemotePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProcessFileDownloadedCiphertextDecryptsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	plaintext := []byte("round trip through the pipeline")
	require.NoError(t, os.WriteFile(path, plaintext, 0644))

	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	cfg := testFileConfig(t, backend)

	entry, err := ProcessFile(context.Background(), cfg, path, "note.txt")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, backend.Download(context.Background(), entry.RemotePath, &buf, storage.Options{}))

	contentHash := entry.RemotePath[len("backups/backup_1/") : len(entry.RemotePath)-len(".enc")]
	blockKey, err := crypto.DeriveBlockKey(cfg.MasterKey.Bytes(), contentHash)
	require.NoError(t, err)
	aad := crypto.ChunkAAD(cfg.BackupID, cfg.Suite, "note.txt")

	decoded, err := container.Decrypt(blockKey, cfg.Suite, aad, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestProcessFileCompressesLargePlaintext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	big := bytes.Repeat([]byte("compressible content "), 1<<20) // > 10MiB, highly compressible
	require.NoError(t, os.WriteFile(path, big, 0644))

	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	cfg := testFileConfig(t, backend)

	entry, err := ProcessFile(context.Background(), cfg, path, "big.txt")
	require.NoError(t, err)
	assert.True(t, entry.Compressed)
}
