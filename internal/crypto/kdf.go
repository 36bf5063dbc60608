package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	apperrors "github.com/skylock/skylock/internal/errors"
	"golang.org/x/crypto/argon2"
)

// downgradeMinMemoryKiB and downgradeMinTimeCost are the floor
// requires on load: manifests whose kdf_params fall below either value are
// rejected outright, closing off a downgrade attack where an attacker
// swaps in cheap KDF parameters to brute-force the password offline.
const (
	downgradeMinMemoryKiB = 65536
	downgradeMinTimeCost  = 3
)

// KDFParams are the Argon2id parameters bound into every manifest. Core
// code never calls argon2.IDKey with implicit defaults — every call site
// goes through a named profile (BalancedKDFParams/ParanoidKDFParams) or an
// explicit KDFParams loaded from a manifest and checked by
// ValidateKDFParams first.
type KDFParams struct {
	MemoryCostKiB uint32
	TimeCost      uint32
	Parallelism   uint8
	OutputLen     uint32
	Salt          []byte
}

// BalancedKDFParams is the default profile: 64 MiB / t=4 / p=4, 32-byte key.
func BalancedKDFParams() KDFParams {
	return KDFParams{MemoryCostKiB: 64 * 1024, TimeCost: 4, Parallelism: 4, OutputLen: 32}
}

// ParanoidKDFParams is the high-cost profile: 512 MiB / t=8 / p=8.
func ParanoidKDFParams() KDFParams {
	return KDFParams{MemoryCostKiB: 512 * 1024, TimeCost: 8, Parallelism: 8, OutputLen: 32}
}

// NewSalt generates a fresh 16-byte salt from the OS CSPRNG.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	return salt, nil
}

// ValidateKDFParams enforces the downgrade floor: memory_cost >= 64 MiB and
// time_cost >= 3. It must be called on every kdf_params loaded from a
// manifest before DeriveMasterKey is ever invoked with them.
func ValidateKDFParams(p KDFParams) error {
	if p.MemoryCostKiB < downgradeMinMemoryKiB {
		return apperrors.NewCryptoError(apperrors.ReasonVersionUnsupported,
			fmt.Errorf("kdf memory_cost %d KiB below minimum %d KiB", p.MemoryCostKiB, downgradeMinMemoryKiB))
	}
	if p.TimeCost < downgradeMinTimeCost {
		return apperrors.NewCryptoError(apperrors.ReasonVersionUnsupported,
			fmt.Errorf("kdf time_cost %d below minimum %d", p.TimeCost, downgradeMinTimeCost))
	}
	if len(p.Salt) == 0 {
		return apperrors.NewCryptoError(apperrors.ReasonVersionUnsupported, fmt.Errorf("kdf salt is empty"))
	}
	return nil
}

// DeriveMasterKey runs Argon2id with the given parameters, returning the
// master key as a SecretBytes the caller is responsible for zeroizing.
func DeriveMasterKey(passphrase string, p KDFParams) *SecretBytes {
	key := argon2.IDKey([]byte(passphrase), p.Salt, p.TimeCost, p.MemoryCostKiB, p.Parallelism, p.OutputLen)
	return NewSecretBytes(key)
}
