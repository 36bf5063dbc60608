package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const hmacKeyLen = 32

// deriveHMACKey expands masterKey into a dedicated HMAC subkey via
// HKDF-SHA256 with info "skylock-hmac-v1". v2 manifests verify whole-file
// integrity with this subkey rather than the master key
// directly, so a compromised integrity tag can never be replayed as a
// decryption key or vice versa.
func deriveHMACKey(masterKey []byte) (*SecretBytes, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte("skylock-hmac-v1"))
	key := make([]byte, hmacKeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("crypto: derive hmac key: %w", err)
	}
	return NewSecretBytes(key), nil
}

// deriveBlockKey expands masterKey into a per-content-hash subkey via
// HKDF-SHA256 with info "skylock-block-key-v1"||contentHash. Two files
// with identical content derive the same block key; their ciphertexts
// still differ because the chunk AAD binds the backup ID and file path,
// and the engine uploads every included file.
func deriveBlockKey(masterKey []byte, contentHash string) (*SecretBytes, error) {
	info := append([]byte("skylock-block-key-v1"), []byte(contentHash)...)
	r := hkdf.New(sha256.New, masterKey, nil, info)
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("crypto: derive block key: %w", err)
	}
	return NewSecretBytes(key), nil
}

// DeriveHMACKey is the exported form of deriveHMACKey for callers outside
// this package (the engine's per-file integrity tag, manifest signing).
func DeriveHMACKey(masterKey []byte) (*SecretBytes, error) {
	return deriveHMACKey(masterKey)
}

// DeriveBlockKey is the exported form of deriveBlockKey for callers
// outside this package (the engine's per-chunk AEAD key derivation).
func DeriveBlockKey(masterKey []byte, contentHash string) (*SecretBytes, error) {
	return deriveBlockKey(masterKey, contentHash)
}

// VerifyHMAC reports whether tag authenticates data under key in constant
// time.
func VerifyHMAC(key, data, tag []byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	expected := mac.Sum(nil)
	return hmac.Equal(expected, tag)
}

// ComputeHMAC returns the HMAC-SHA256 tag of data under key.
func ComputeHMAC(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
