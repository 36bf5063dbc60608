package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTestSeed(t *testing.T) {
	seed := GetTestSeed(t)
	assert.NotZero(t, seed, "seed should not be zero")
}

func TestHashData(t *testing.T) {
	data := []byte("test data")
	hash1 := HashData(data)
	hash2 := HashData(data)

	assert.Equal(t, hash1, hash2, "same data should produce same hash")

	differentData := []byte("different data")
	hash3 := HashData(differentData)
	assert.NotEqual(t, hash1, hash3, "different data should produce different hash")
}

func TestHashHex(t *testing.T) {
	data := []byte("test data")
	hexHash := HashHex(data)

	assert.Len(t, hexHash, 64, "SHA256 hex should be 64 chars")
}

func TestCompareHashes(t *testing.T) {
	data := []byte("test data")
	hash1 := HashData(data)
	hash2 := HashData(data)

	assert.True(t, CompareHashes(hash1, hash2), "identical hashes should compare equal")

	hash3 := HashData([]byte("other"))
	assert.False(t, CompareHashes(hash1, hash3), "different hashes should not compare equal")
}

func TestValidateHash(t *testing.T) {
	data := []byte("test data")
	hash := HashData(data)

	assert.True(t, ValidateHash(data, hash), "data should validate against its own hash")
	assert.False(t, ValidateHash([]byte("wrong data"), hash), "wrong data should not validate")
}

func TestPasswordFixture(t *testing.T) {
	pf := NewPasswordFixture()

	assert.Len(t, pf.Raw, 32)
	assert.Len(t, pf.Hex, 64)
	assert.True(t, pf.ValidateHash(pf.Bytes()), "password should validate its own hash")
}

func TestPasswordFixtureWithSeed(t *testing.T) {
	seed := int64(12345)
	pf1 := NewPasswordFixture(WithSeed(seed))
	pf2 := NewPasswordFixture(WithSeed(seed))

	assert.Equal(t, pf1.Raw, pf2.Raw, "same seed should produce same password")
}

func TestDataFixture(t *testing.T) {
	df := NewDataFixture(100)

	assert.Equal(t, 100, df.Size)
	assert.Len(t, df.Data, 100)
	assert.True(t, df.ValidateHash(df.Data), "data should validate its own hash")
	assert.True(t, df.ValidateContent(df.Data), "data should match itself")
}

func TestDataFixtureFromBytes(t *testing.T) {
	original := []byte("specific test content")
	df := NewDataFixtureFromBytes(original)

	assert.Equal(t, original, df.Data, "data should match original")
	assert.True(t, df.ValidateHash(original), "should validate original data")
}

func TestCryptoKeyFixture(t *testing.T) {
	key, err := NewCryptoKeyFixture("alice")
	require.NoError(t, err, "failed to create key")

	assert.Equal(t, "alice", key.Name)
	assert.NotEmpty(t, key.KeyID)

	message := []byte("test message")
	sig, err := key.Sign(message)
	require.NoError(t, err, "sign failed")

	assert.True(t, key.Verify(message, sig), "verification should succeed")
	assert.False(t, key.Verify([]byte("different message"), sig), "verification should fail for different message")
}

func TestCryptoKeyFixtureRoundTrip(t *testing.T) {
	key := MustNewCryptoKeyFixture("test")

	err := key.EncodeDecodeRoundTrip()
	assert.NoError(t, err, "round trip failed")
}

func TestKeyHoldersFixture(t *testing.T) {
	kf, err := NewKeyHoldersFixture("alice", "bob", "charlie")
	require.NoError(t, err, "failed to create key holders")

	assert.Len(t, kf.Holders, 3)

	alice := kf.Get("alice")
	require.NotNil(t, alice)
	assert.Equal(t, "alice", alice.Name)

	bob := kf.GetByIndex(1)
	require.NotNil(t, bob)
	assert.Equal(t, "bob", bob.Name)

	assert.Len(t, kf.PublicKeys(), 3)
	assert.Len(t, kf.KeyIDs(), 3)
}
