package compress

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	plaintext := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 2000))

	for _, lvl := range []Level{LevelFast, LevelBalanced, LevelGood, LevelBest} {
		compressed, err := Compress(plaintext, lvl, 0)
		require.NoError(t, err)
		assert.Less(t, len(compressed), len(plaintext))

		out, err := Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, out)
	}
}

func TestCompressLevelNoneIsNoOp(t *testing.T) {
	plaintext := []byte("hello world")
	out, err := Compress(plaintext, LevelNone, 0)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestCompressCustomLevel(t *testing.T) {
	plaintext := []byte(strings.Repeat("abc", 5000))
	compressed, err := Compress(plaintext, LevelCustom, 19)
	require.NoError(t, err)
	out, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestShouldKeepRejectsLargerOutput(t *testing.T) {
	assert.True(t, ShouldKeep(1000, 500))
	assert.False(t, ShouldKeep(100, 150))
	assert.False(t, ShouldKeep(100, 100))
}

func TestCompressIncompressibleDataIsDiscardable(t *testing.T) {
	random := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(random)
	compressed, err := Compress(random, LevelBalanced, 0)
	require.NoError(t, err)
	// Uniformly random bytes do not shrink, so the discard rule rejects
	// the compressed form.
	assert.False(t, ShouldKeep(len(random), len(compressed)))
}
