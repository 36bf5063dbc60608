// Package manifest defines the self-describing root record of a backup —
// its file list, encryption parameters, chain linkage, and optional
// signature — and the operations to build, (de)serialize, and sign one.
package manifest

import (
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
)

// EncryptionVersion selects the per-file cipher/integrity scheme a
// manifest's files were written with.
type EncryptionVersion string

const (
	EncryptionV1 EncryptionVersion = "v1"
	EncryptionV2 EncryptionVersion = "v2"
)

// HashAlgorithm names the digest FileEntry.Hash was computed with.
type HashAlgorithm string

const (
	HashSHA256     HashAlgorithm = "sha256"
	HashHMACSHA256 HashAlgorithm = "hmac-sha256"
)

// KDFParams records the Argon2id configuration a v2 manifest's master key
// was derived under, so restore can re-derive the same key from the
// passphrase alone.
type KDFParams struct {
	MemoryCostKiB uint32 `json:"memory_cost_kib"`
	TimeCost      uint32 `json:"time_cost"`
	Parallelism   uint8  `json:"parallelism"`
	OutputLen     uint32 `json:"output_len"`
	Salt          string `json:"salt"` // hex-encoded
}

// SignatureAlgorithm names the signing scheme used for Signature.Algorithm.
type SignatureAlgorithm string

const SignatureEd25519 SignatureAlgorithm = "Ed25519"

// Signature is the manifest's optional signing envelope.
type Signature struct {
	Algorithm   SignatureAlgorithm `json:"algorithm"`
	Fingerprint string             `json:"fingerprint"`
	SignatureHex string            `json:"signature_hex"`
	SignedAt    time.Time          `json:"signed_at"`
	KeyID       string             `json:"key_id"`
}

// FileEntry describes one file within a backup.
type FileEntry struct {
	LocalPath  string    `json:"local_path"`
	RemotePath string    `json:"remote_path"`
	Size       int64     `json:"size"`
	Modified   time.Time `json:"modified"`
	Hash       string    `json:"hash"`
	Compressed bool      `json:"compressed"`
	Encrypted  bool      `json:"encrypted"`
}

// BackupManifest is the self-describing root of every backup.
type BackupManifest struct {
	BackupID      string        `json:"backup_id"`
	Timestamp     time.Time     `json:"timestamp"`
	SourcePaths   []string      `json:"source_paths"`
	Files         []FileEntry   `json:"files"`
	TotalFiles    int           `json:"total_files"`
	TotalSize     int64         `json:"total_size"`
	EncryptionVersion EncryptionVersion `json:"encryption_version"`
	KDFParams     *KDFParams    `json:"kdf_params,omitempty"`
	BaseBackupID  string        `json:"base_backup_id,omitempty"`
	HashAlgorithm HashAlgorithm `json:"hash_algorithm"`
	ChainVersion  int64         `json:"backup_chain_version"`
	Signature     *Signature    `json:"signature,omitempty"`
}

// New returns an unsigned manifest skeleton for a fresh full backup.
func New(backupID string, sourcePaths []string, version EncryptionVersion) *BackupManifest {
	hashAlgo := HashSHA256
	if version == EncryptionV2 {
		hashAlgo = HashHMACSHA256
	}
	return &BackupManifest{
		BackupID:          backupID,
		Timestamp:         time.Now().UTC(),
		SourcePaths:       sourcePaths,
		Files:             []FileEntry{},
		EncryptionVersion: version,
		HashAlgorithm:     hashAlgo,
		ChainVersion:       1,
	}
}

// AddFile appends entry and keeps TotalFiles/TotalSize in sync.
func (m *BackupManifest) AddFile(entry FileEntry) {
	m.Files = append(m.Files, entry)
	m.TotalFiles = len(m.Files)
	m.TotalSize += entry.Size
}

// Validate checks the structural invariants spec'd for every manifest:
// aggregate counters match the file list, and no remote_path escapes the
// backup's own directory.
func (m *BackupManifest) Validate() error {
	var total int64
	for _, f := range m.Files {
		total += f.Size
		if err := validateRemotePath(f.RemotePath); err != nil {
			return apperrors.New(apperrors.KindPathValidation, err)
		}
	}
	if total != m.TotalSize {
		return apperrors.Newf(apperrors.KindConflict, "total_size %d does not match sum of file sizes %d", m.TotalSize, total)
	}
	if len(m.Files) != m.TotalFiles {
		return apperrors.Newf(apperrors.KindConflict, "total_files %d does not match file count %d", m.TotalFiles, len(m.Files))
	}
	return nil
}
