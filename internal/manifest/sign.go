package manifest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/skylock/skylock/internal/crypto"
	apperrors "github.com/skylock/skylock/internal/errors"
)

// envelopeCanonicalForm mirrors canonicalForm field-for-field, except
// Files is kept as raw, unparsed JSON instead of []FileEntry. A forged
// manifest claiming millions of files must not cost memory proportional
// to that count before its signature is even checked, so nothing here
// ever decodes an individual FileEntry pre-verification.
type envelopeCanonicalForm struct {
	BackupID          string            `json:"backup_id"`
	Timestamp         int64             `json:"timestamp"`
	SourcePaths       []string          `json:"source_paths"`
	Files             json.RawMessage   `json:"files"`
	TotalFiles        int               `json:"total_files"`
	TotalSize         int64             `json:"total_size"`
	EncryptionVersion EncryptionVersion `json:"encryption_version"`
	KDFParams         *KDFParams        `json:"kdf_params,omitempty"`
	BaseBackupID      string            `json:"base_backup_id,omitempty"`
	HashAlgorithm     HashAlgorithm     `json:"hash_algorithm"`
	ChainVersion      int64             `json:"backup_chain_version"`
}

// envelope is the minimal shape needed to verify a manifest's signature
// without building the full FileEntry list into memory. Signature
// verification must precede full deserialization per spec so a forged,
// oversized manifest can't be used to exhaust memory before its
// signature is even checked.
type envelope struct {
	envelopeCanonicalForm
	// Timestamp takes the stored RFC 3339 value during decoding; VerifyEnvelope
	// converts it to the Unix seconds the canonical form hashes.
	Timestamp time.Time  `json:"timestamp"`
	Signature *Signature `json:"signature,omitempty"`
}

// Sign computes the manifest's canonical hash, signs it with privateKey,
// and attaches the resulting Signature. keyID is an opaque identifier
// (e.g. a UUID) distinguishing which of an operator's keys produced it.
func (m *BackupManifest) Sign(privateKey []byte, keyID string) error {
	hash, err := m.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(privateKey, hash)
	if err != nil {
		return apperrors.NewCryptoError(apperrors.ReasonSigning, err)
	}

	pub := ed25519.PrivateKey(privateKey).Public().(ed25519.PublicKey)
	m.Signature = &Signature{
		Algorithm:    SignatureEd25519,
		Fingerprint:  crypto.KeyID(pub),
		SignatureHex: hex.EncodeToString(sig),
		SignedAt:     time.Now().UTC(),
		KeyID:        keyID,
	}
	return nil
}

// VerifyEnvelope parses only the fields needed to check a signature out
// of raw manifest JSON, verifies it against publicKey, and returns the
// parsed envelope. Callers proceed to full json.Unmarshal only after this
// succeeds.
func VerifyEnvelope(raw []byte, publicKey []byte) (*envelope, error) {
	// Compacting is a single linear pass with no per-element allocation,
	// unlike decoding into []FileEntry — it normalizes away any
	// pretty-printing so the raw Files bytes below byte-match what Sign
	// originally hashed, regardless of how the manifest was stored on disk.
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, apperrors.New(apperrors.KindConflict, err)
	}

	var env envelope
	if err := json.Unmarshal(compact.Bytes(), &env); err != nil {
		return nil, apperrors.New(apperrors.KindConflict, err)
	}
	env.envelopeCanonicalForm.Timestamp = env.Timestamp.UTC().Unix()
	if env.Signature == nil {
		return &env, nil
	}

	data, err := json.Marshal(env.envelopeCanonicalForm)
	if err != nil {
		return nil, apperrors.New(apperrors.KindConflict, err)
	}
	sum := sha256.Sum256(data)
	hash := sum[:]

	sig, err := hex.DecodeString(env.Signature.SignatureHex)
	if err != nil {
		return nil, apperrors.NewCryptoError(apperrors.ReasonSigning, err)
	}
	if !crypto.Verify(publicKey, hash, sig) {
		return nil, apperrors.NewCryptoError(apperrors.ReasonWrongKey, nil)
	}
	expectedFingerprint := crypto.KeyID(publicKey)
	if env.Signature.Fingerprint != expectedFingerprint {
		return nil, apperrors.NewCryptoError(apperrors.ReasonWrongKey, nil)
	}
	return &env, nil
}

// Verify checks m.Signature against publicKey using the manifest's own
// canonical form (used once the full manifest is already in memory,
// e.g. after a local load rather than a network fetch).
func (m *BackupManifest) Verify(publicKey []byte) error {
	if m.Signature == nil {
		return apperrors.Newf(apperrors.KindCrypto, "manifest %s is not signed", m.BackupID)
	}
	hash, err := m.Hash()
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(m.Signature.SignatureHex)
	if err != nil {
		return apperrors.NewCryptoError(apperrors.ReasonSigning, err)
	}
	if !crypto.Verify(publicKey, hash, sig) {
		return apperrors.NewCryptoError(apperrors.ReasonWrongKey, nil)
	}
	return nil
}
