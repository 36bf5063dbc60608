// Package integrity provides out-of-band checks that a backup's declared
// file list still matches what is actually sitting on the storage
// backend, and keeps an owner-signed verification record per backup so
// a later check can detect tampering or deletion without re-trusting the
// manifest's own metadata.
package integrity

import (
	"time"
)

// CheckResult is the outcome of one integrity check run against a
// single backup.
type CheckResult struct {
	Timestamp    time.Time `json:"timestamp"`
	BackupID     string    `json:"backupId"`
	TotalFiles   int       `json:"totalFiles"`
	CheckedFiles int       `json:"checkedFiles"`
	CorruptFiles int       `json:"corruptFiles"`
	MissingFiles int       `json:"missingFiles"`
	Errors       []string  `json:"errors,omitempty"`
	Duration     string    `json:"duration"`
	Passed       bool      `json:"passed"`
}

// VerificationRecord is a signed record of a backup's expected state,
// created by the owner right after a successful backup. A later
// integrity check compares live storage state against this record
// rather than trusting the manifest's own unsigned bookkeeping fields,
// so a host that silently deletes or swaps ciphertext objects is still
// caught even if it also rewrites the local manifest copy.
type VerificationRecord struct {
	ID         string    `json:"id"`
	BackupID   string    `json:"backupId"`
	CreatedAt  time.Time `json:"createdAt"`
	OwnerKeyID string    `json:"ownerKeyId"`

	// ManifestHash is the SHA-256 of the manifest's JSON encoding, signature
	// included.
	ManifestHash string `json:"manifestHash"`

	// ContentMerkleRoot is the merkle root of every file entry's
	// remote_path, sorted, as of when the record was created.
	ContentMerkleRoot string `json:"contentMerkleRoot"`
	ContentFileCount  int    `json:"contentFileCount"`

	// Signature is the owner's Ed25519 signature over this record's hash.
	Signature string `json:"signature,omitempty"`
}
