package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	apperrors "github.com/skylock/skylock/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherSuite names the AEAD algorithm a chunk was sealed with. The suite
// is bound into each v2 chunk's AAD but is not stored in the container or
// the manifest; restore opens content with AES-256-GCM.
type CipherSuite string

const (
	SuiteAES256GCM          CipherSuite = "AES-256-GCM"
	SuiteXChaCha20Poly1305  CipherSuite = "XChaCha20-Poly1305"
)

// MaxChunkSize is the largest plaintext chunk the engine will seal in one
// AEAD call (a 1 MiB ceiling). Chunking bounds how much
// plaintext a single forged or replayed ciphertext block could expose and
// keeps per-chunk HKDF nonce derivation cheap.
const MaxChunkSize = 1 << 20

// TagSize is the Poly1305/GCM authentication tag appended to every
// ciphertext by both supported suites.
const TagSize = 16

// NonceSize returns the AEAD nonce length for suite without constructing
// a cipher instance, so callers that only need to frame chunks on the
// wire (internal/container) don't need key material on hand.
func NonceSize(suite CipherSuite) (int, error) {
	switch suite {
	case SuiteAES256GCM, "":
		return 12, nil
	case SuiteXChaCha20Poly1305:
		return chacha20poly1305.NonceSizeX, nil
	default:
		return 0, apperrors.NewCryptoError(apperrors.ReasonVersionUnsupported,
			fmt.Errorf("unsupported cipher suite %q", suite))
	}
}

func newAEAD(suite CipherSuite, key []byte) (cipher.AEAD, int, error) {
	switch suite {
	case SuiteAES256GCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, 0, fmt.Errorf("crypto: new aes cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, 0, fmt.Errorf("crypto: new gcm: %w", err)
		}
		return aead, aead.NonceSize(), nil
	case SuiteXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, 0, fmt.Errorf("crypto: new xchacha20poly1305: %w", err)
		}
		return aead, aead.NonceSize(), nil
	default:
		return nil, 0, apperrors.NewCryptoError(apperrors.ReasonVersionUnsupported,
			fmt.Errorf("unsupported cipher suite %q", suite))
	}
}

// ChunkAAD builds the additional-authenticated-data string that
// binds into every v2 chunk: "{backupID}|{suite}|v2|{filePath}". Binding
// the backup ID and file path into the tag means a chunk encrypted for
// one backup or one path can never be swapped into another without
// breaking authentication, even though the underlying key may be shared.
func ChunkAAD(backupID string, suite CipherSuite, filePath string) []byte {
	return []byte(fmt.Sprintf("%s|%s|v2|%s", backupID, suite, filePath))
}

// EncryptChunk seals one plaintext chunk (at most MaxChunkSize bytes)
// under blockKey, deriving the nonce from the plaintext itself and the
// chunk's index so the caller never has to persist or synchronize a
// nonce counter.
func EncryptChunk(blockKey *SecretBytes, suite CipherSuite, chunkIndex int, aad, plaintext []byte) (nonce, ciphertext []byte, err error) {
	if len(plaintext) > MaxChunkSize {
		return nil, nil, apperrors.NewCryptoError(apperrors.ReasonSizeLimit,
			fmt.Errorf("chunk size %d exceeds max %d", len(plaintext), MaxChunkSize))
	}
	aead, nonceSize, err := newAEAD(suite, blockKey.Bytes())
	if err != nil {
		return nil, nil, err
	}
	nonce, err = deriveNonce(blockKey.Bytes(), plaintext, chunkIndex, string(suite), nonceSize)
	if err != nil {
		return nil, nil, err
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// DecryptChunk opens one v2 chunk. A failed tag check is reported as
// ReasonTagMismatch rather than a bare error so callers can distinguish
// corruption/tampering from an unrelated I/O failure.
func DecryptChunk(blockKey *SecretBytes, suite CipherSuite, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, nonceSize, err := newAEAD(suite, blockKey.Bytes())
	if err != nil {
		return nil, err
	}
	if len(nonce) != nonceSize {
		return nil, apperrors.NewCryptoError(apperrors.ReasonTagMismatch,
			fmt.Errorf("nonce size %d does not match suite %s", len(nonce), suite))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, apperrors.NewCryptoError(apperrors.ReasonTagMismatch, err)
	}
	return plaintext, nil
}
