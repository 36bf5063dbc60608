package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveNonceDeterministic(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	chunk := []byte("chunk contents")

	n1, err := deriveNonce(key, chunk, 5, "AES-256-GCM", 12)
	require.NoError(t, err)
	n2, err := deriveNonce(key, chunk, 5, "AES-256-GCM", 12)
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Len(t, n1, 12)
}

func TestDeriveNonceVariesWithIndexAndContent(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	base, err := deriveNonce(key, []byte("chunk A"), 0, "AES-256-GCM", 12)
	require.NoError(t, err)

	differentIndex, err := deriveNonce(key, []byte("chunk A"), 1, "AES-256-GCM", 12)
	require.NoError(t, err)
	assert.NotEqual(t, base, differentIndex)

	differentContent, err := deriveNonce(key, []byte("chunk B"), 0, "AES-256-GCM", 12)
	require.NoError(t, err)
	assert.NotEqual(t, base, differentContent)

	differentSuite, err := deriveNonce(key, []byte("chunk A"), 0, "XChaCha20-Poly1305", 24)
	require.NoError(t, err)
	assert.Len(t, differentSuite, 24)
}
