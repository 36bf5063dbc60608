package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// canonicalForm mirrors BackupManifest field-for-field but omits
// Signature, giving a byte-deterministic encoding to hash and sign. Its
// field order is fixed by struct declaration order, matching the
// teacher's manifestHash approach of hashing a signature-stripped copy
// rather than mutating the live manifest.
type canonicalForm struct {
	BackupID          string            `json:"backup_id"`
	Timestamp         int64             `json:"timestamp"`
	SourcePaths       []string          `json:"source_paths"`
	Files             []FileEntry       `json:"files"`
	TotalFiles        int               `json:"total_files"`
	TotalSize         int64             `json:"total_size"`
	EncryptionVersion EncryptionVersion `json:"encryption_version"`
	KDFParams         *KDFParams        `json:"kdf_params,omitempty"`
	BaseBackupID      string            `json:"base_backup_id,omitempty"`
	HashAlgorithm     HashAlgorithm     `json:"hash_algorithm"`
	ChainVersion      int64             `json:"backup_chain_version"`
}

func (m *BackupManifest) canonicalBytes() ([]byte, error) {
	c := canonicalForm{
		BackupID:          m.BackupID,
		Timestamp:         m.Timestamp.UTC().Unix(),
		SourcePaths:       m.SourcePaths,
		Files:             m.Files,
		TotalFiles:        m.TotalFiles,
		TotalSize:         m.TotalSize,
		EncryptionVersion: m.EncryptionVersion,
		KDFParams:         m.KDFParams,
		BaseBackupID:      m.BaseBackupID,
		HashAlgorithm:     m.HashAlgorithm,
		ChainVersion:      m.ChainVersion,
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("manifest: canonicalize: %w", err)
	}
	return data, nil
}

// Hash returns the SHA-256 digest of the manifest's canonical form —
// the bytes that get signed and the bytes a signature is checked against.
func (m *BackupManifest) Hash() ([]byte, error) {
	data, err := m.canonicalBytes()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}
