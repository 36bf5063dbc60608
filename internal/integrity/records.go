package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/logging"
	"github.com/skylock/skylock/internal/manifest"
)

// loadRecords loads verification records from disk.
func (c *Checker) loadRecords() {
	data, err := os.ReadFile(c.recordsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("failed to read verification records", logging.Err(err))
		}
		return
	}

	var records []*VerificationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Debug("failed to parse verification records", logging.Err(err))
		return
	}

	for _, r := range records {
		c.records[r.BackupID] = r
	}
}

// saveRecords writes every known verification record to disk.
func (c *Checker) saveRecords() error {
	c.mu.RLock()
	records := make([]*VerificationRecord, 0, len(c.records))
	for _, r := range c.records {
		records = append(records, r)
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.recordsPath, data, 0600)
}

// AddVerificationRecord stores record after checking that ownerPubKey
// actually signed it.
func (c *Checker) AddVerificationRecord(record *VerificationRecord, ownerPubKey []byte) error {
	if record.Signature == "" {
		return fmt.Errorf("record must be signed")
	}

	hash, err := c.hashRecord(record)
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(record.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !crypto.Verify(ownerPubKey, hash, sig) {
		return fmt.Errorf("signature verification failed")
	}

	c.mu.Lock()
	c.records[record.BackupID] = record
	c.mu.Unlock()

	return c.saveRecords()
}

// hashRecord computes the canonical hash a record is signed over,
// excluding the signature field itself.
func (c *Checker) hashRecord(r *VerificationRecord) ([]byte, error) {
	data := struct {
		ID                string `json:"id"`
		BackupID          string `json:"backupId"`
		CreatedAt         int64  `json:"createdAt"`
		OwnerKeyID        string `json:"ownerKeyId"`
		ManifestHash      string `json:"manifestHash"`
		ContentMerkleRoot string `json:"contentMerkleRoot"`
		ContentFileCount  int    `json:"contentFileCount"`
	}{
		ID:                r.ID,
		BackupID:          r.BackupID,
		CreatedAt:         r.CreatedAt.Unix(),
		OwnerKeyID:        r.OwnerKeyID,
		ManifestHash:      r.ManifestHash,
		ContentMerkleRoot: r.ContentMerkleRoot,
		ContentFileCount:  r.ContentFileCount,
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(jsonBytes)
	return hash[:], nil
}

// GetVerificationRecord returns the record stored for backupID, or nil.
func (c *Checker) GetVerificationRecord(backupID string) *VerificationRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[backupID]
}

// CreateVerificationRecord builds an unsigned record from m — the
// caller (the owner, holding the private key) must sign it with
// crypto.Sign over hashRecord's output before calling
// AddVerificationRecord.
func CreateVerificationRecord(m *manifest.BackupManifest, ownerKeyID string) (*VerificationRecord, error) {
	manifestBytes, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("integrity: marshal manifest: %w", err)
	}
	manifestSum := sha256.Sum256(manifestBytes)

	names := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		names = append(names, f.RemotePath)
	}
	root, count := merkleRoot(names)

	return &VerificationRecord{
		ID:                fmt.Sprintf("%x", sha256.Sum256([]byte(m.BackupID+time.Now().String())))[:16],
		BackupID:          m.BackupID,
		CreatedAt:         time.Now(),
		OwnerKeyID:        ownerKeyID,
		ManifestHash:      hex.EncodeToString(manifestSum[:]),
		ContentMerkleRoot: root,
		ContentFileCount:  count,
	}, nil
}

// Sign computes record's canonical hash and signs it with privateKey,
// filling in Signature.
func (c *Checker) Sign(record *VerificationRecord, privateKey []byte) error {
	hash, err := c.hashRecord(record)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(privateKey, hash)
	if err != nil {
		return fmt.Errorf("integrity: sign record: %w", err)
	}
	record.Signature = hex.EncodeToString(sig)
	return nil
}
