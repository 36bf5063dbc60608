package integrity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skylock/skylock/internal/compress"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/engine"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMasterKey() *crypto.SecretBytes {
	return crypto.NewSecretBytes(make([]byte, 32))
}

// backupFixture runs a real backup through internal/engine so checker
// tests exercise genuine manifests and ciphertext rather than hand-built
// fixtures.
func backupFixture(t *testing.T, masterKey *crypto.SecretBytes, files map[string]string) (*manifest.BackupManifest, storage.Backend, string) {
	t.Helper()
	source := t.TempDir()
	for name, content := range files {
		full := filepath.Join(source, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}

	backupRoot := t.TempDir()
	backend, err := storage.NewLocalBackend(backupRoot)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), engine.Options{
		BackupID:          "backup_1",
		SourcePaths:       []string{source},
		Workers:           2,
		BackupRoot:        "backups",
		StateDir:          t.TempDir(),
		MasterKey:         masterKey,
		Suite:             crypto.SuiteAES256GCM,
		EncryptionVersion: manifest.EncryptionV2,
		CompressionLevel:  compress.LevelBalanced,
		Backend:           backend,
	})
	require.NoError(t, err)
	return result.Manifest, backend, backupRoot
}

func TestQuickCheckPassesOnIntactBackup(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{
		"a.txt": "hello world",
		"b.txt": "second file",
	})

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	result, err := checker.QuickCheck(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.TotalFiles)
	assert.Zero(t, result.MissingFiles)
}

func TestQuickCheckDetectsMissingObject(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, backupRoot := backupFixture(t, masterKey, map[string]string{"a.txt": "hello"})
	require.NoError(t, os.RemoveAll(filepath.Join(backupRoot, "backups")))

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	result, err := checker.QuickCheck(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.MissingFiles)
}

func TestQuickCheckDetectsMerkleRootDriftAgainstRecord(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{
		"a.txt": "hello",
		"b.txt": "world",
	})

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	record, err := CreateVerificationRecord(m, "owner-key-1")
	require.NoError(t, err)
	pubKey, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, checker.Sign(record, privKey))
	require.NoError(t, checker.AddVerificationRecord(record, pubKey))

	// Drop a file from the manifest so the live content no longer
	// matches the content the record was signed over.
	truncated := *m
	truncated.Files = m.Files[:1]

	result, err := checker.QuickCheck(context.Background(), &truncated)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.CorruptFiles)
}

func TestFullCheckPassesOnIntactBackup(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{"a.txt": "hello world"})

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	result, err := checker.FullCheck(context.Background(), m, masterKey)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Zero(t, result.CorruptFiles)
}

func TestFullCheckDetectsHashMismatch(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{"a.txt": "hello world"})
	m.Files[0].Hash = "0000000000000000000000000000000000000000000000000000000000000"

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	result, err := checker.FullCheck(context.Background(), m, masterKey)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.CorruptFiles)
}

func TestCheckHistoryAccumulates(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{"a.txt": "hello"})

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := checker.QuickCheck(context.Background(), m)
		require.NoError(t, err)
	}

	history := checker.GetHistory(10)
	assert.Len(t, history, 3)
	for _, h := range history {
		assert.True(t, h.Passed)
	}
}

func TestVerificationRecordSignatureTamperDetected(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{"a.txt": "hello"})

	checker, err := NewChecker(t.TempDir(), backend)
	require.NoError(t, err)

	record, err := CreateVerificationRecord(m, "owner-key-1")
	require.NoError(t, err)
	pubKey, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, checker.Sign(record, privKey))

	record.ContentFileCount = 9999

	err = checker.AddVerificationRecord(record, pubKey)
	assert.Error(t, err)
}

func TestVerificationRecordPersistsAcrossCheckerInstances(t *testing.T) {
	masterKey := testMasterKey()
	m, backend, _ := backupFixture(t, masterKey, map[string]string{"a.txt": "hello"})
	recordsDir := t.TempDir()

	checker1, err := NewChecker(recordsDir, backend)
	require.NoError(t, err)

	record, err := CreateVerificationRecord(m, "owner-key-1")
	require.NoError(t, err)
	pubKey, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, checker1.Sign(record, privKey))
	require.NoError(t, checker1.AddVerificationRecord(record, pubKey))

	checker2, err := NewChecker(recordsDir, backend)
	require.NoError(t, err)

	retrieved := checker2.GetVerificationRecord(m.BackupID)
	require.NotNil(t, retrieved)
	assert.Equal(t, record.ContentMerkleRoot, retrieved.ContentMerkleRoot)
	assert.Equal(t, record.Signature, retrieved.Signature)
}
