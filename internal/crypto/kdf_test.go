package crypto

import (
	"testing"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSalt(t *testing.T) {
	s1, err := NewSalt()
	require.NoError(t, err)
	s2, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, s1, 16)
	assert.NotEqual(t, s1, s2)
}

func TestDeriveMasterKey(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	params := BalancedKDFParams()
	params.Salt = salt

	t.Run("same inputs derive the same key", func(t *testing.T) {
		k1 := DeriveMasterKey("correct-passphrase", params)
		k2 := DeriveMasterKey("correct-passphrase", params)
		assert.Equal(t, k1.Bytes(), k2.Bytes())
		assert.Len(t, k1.Bytes(), 32)
	})

	t.Run("different passphrases derive different keys", func(t *testing.T) {
		k1 := DeriveMasterKey("passphrase-a", params)
		k2 := DeriveMasterKey("passphrase-b", params)
		assert.NotEqual(t, k1.Bytes(), k2.Bytes())
	})

	t.Run("different salts derive different keys", func(t *testing.T) {
		other := params
		otherSalt, err := NewSalt()
		require.NoError(t, err)
		other.Salt = otherSalt

		k1 := DeriveMasterKey("same-passphrase", params)
		k2 := DeriveMasterKey("same-passphrase", other)
		assert.NotEqual(t, k1.Bytes(), k2.Bytes())
	})
}

func TestValidateKDFParams(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	t.Run("accepts balanced profile", func(t *testing.T) {
		p := BalancedKDFParams()
		p.Salt = salt
		assert.NoError(t, ValidateKDFParams(p))
	})

	t.Run("accepts paranoid profile", func(t *testing.T) {
		p := ParanoidKDFParams()
		p.Salt = salt
		assert.NoError(t, ValidateKDFParams(p))
	})

	t.Run("rejects memory cost below the downgrade floor", func(t *testing.T) {
		p := KDFParams{MemoryCostKiB: 8 * 1024, TimeCost: 4, Parallelism: 4, OutputLen: 32, Salt: salt}
		err := ValidateKDFParams(p)
		assert.Error(t, err)
		assert.Equal(t, apperrors.KindCrypto, apperrors.KindOf(err))
	})

	t.Run("rejects time cost below the downgrade floor", func(t *testing.T) {
		p := KDFParams{MemoryCostKiB: 128 * 1024, TimeCost: 1, Parallelism: 4, OutputLen: 32, Salt: salt}
		assert.Error(t, ValidateKDFParams(p))
	})

	t.Run("rejects missing salt", func(t *testing.T) {
		p := BalancedKDFParams()
		assert.Error(t, ValidateKDFParams(p))
	})
}
