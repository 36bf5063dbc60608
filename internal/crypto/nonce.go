package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

// deriveNonce runs HKDF-SHA256 over key, using sha256(plaintextChunk) as
// salt and "{chunkIndex}||skylock-nonce-{suite}" as info, producing a
// nonce of the requested size. Binding the salt to the plaintext's own
// hash means two chunks with identical content at different indices (or
// the same index across re-encryptions of a changed chunk) never reuse a
// nonce under the same key, without the engine having to track a counter
// across process restarts.
func deriveNonce(key, plaintextChunk []byte, chunkIndex int, suite string, size int) ([]byte, error) {
	sum := sha256.Sum256(plaintextChunk)
	info := []byte(strconv.Itoa(chunkIndex) + "||skylock-nonce-" + suite)
	r := hkdf.New(sha256.New, key, sum[:], info)
	nonce := make([]byte, size)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("crypto: derive nonce: %w", err)
	}
	return nonce, nil
}
