package crypto

import (
	"testing"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlockKey(t *testing.T) *SecretBytes {
	t.Helper()
	key, err := deriveBlockKey([]byte("0123456789abcdef0123456789abcdef"), "deadbeef")
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptChunkRoundTrip(t *testing.T) {
	for _, suite := range []CipherSuite{SuiteAES256GCM, SuiteXChaCha20Poly1305} {
		suite := suite
		t.Run(string(suite), func(t *testing.T) {
			key := testBlockKey(t)
			aad := ChunkAAD("backup-1", suite, "/home/user/doc.txt")
			plaintext := []byte("the quick brown fox jumps over the lazy dog")

			nonce, ciphertext, err := EncryptChunk(key, suite, 0, aad, plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, plaintext, ciphertext)

			decrypted, err := DecryptChunk(key, suite, nonce, aad, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestEncryptChunkRejectsOversizedInput(t *testing.T) {
	key := testBlockKey(t)
	oversized := make([]byte, MaxChunkSize+1)
	_, _, err := EncryptChunk(key, SuiteAES256GCM, 0, nil, oversized)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCrypto, apperrors.KindOf(err))
}

func TestDecryptChunkRejectsTamperedCiphertext(t *testing.T) {
	key := testBlockKey(t)
	aad := ChunkAAD("backup-1", SuiteAES256GCM, "/etc/hosts")
	nonce, ciphertext, err := EncryptChunk(key, SuiteAES256GCM, 3, aad, []byte("payload"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = DecryptChunk(key, SuiteAES256GCM, nonce, aad, ciphertext)
	require.Error(t, err)
}

func TestDecryptChunkRejectsMismatchedAAD(t *testing.T) {
	key := testBlockKey(t)
	nonce, ciphertext, err := EncryptChunk(key, SuiteAES256GCM, 0, ChunkAAD("backup-1", SuiteAES256GCM, "/a"), []byte("payload"))
	require.NoError(t, err)

	_, err = DecryptChunk(key, SuiteAES256GCM, nonce, ChunkAAD("backup-1", SuiteAES256GCM, "/b"), ciphertext)
	require.Error(t, err)
}

func TestChunkIndexChangesNonce(t *testing.T) {
	key := testBlockKey(t)
	aad := ChunkAAD("backup-1", SuiteAES256GCM, "/a")
	plaintext := []byte("identical content")

	nonce0, _, err := EncryptChunk(key, SuiteAES256GCM, 0, aad, plaintext)
	require.NoError(t, err)
	nonce1, _, err := EncryptChunk(key, SuiteAES256GCM, 1, aad, plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, nonce0, nonce1)
}
