// Package catalog maintains the owner's signed ledger of every backup
// ever created for a source set. Unlike a single backup's manifest
// (internal/manifest), which lists the files inside one backup, the
// catalog lists backups themselves — so a host that silently deletes
// a whole backup (rather than tampering with its content) can still
// be caught: the deleted backup stays in the signed catalog and
// Verify against live storage will flag it missing.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/logging"
	"go.uber.org/zap"
)

// Entry records one backup's presence in the catalog.
type Entry struct {
	BackupID     string    `json:"backup_id"`
	CreatedAt    time.Time `json:"created_at"`
	SourcePaths  []string  `json:"source_paths"`
	FileCount    int       `json:"file_count"`
	TotalBytes   int64     `json:"total_bytes"`
	ManifestHash string    `json:"manifest_hash,omitempty"`
}

// Catalog is the signed ledger of all backups known to the owner.
type Catalog struct {
	Version   int       `json:"version"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Entries []Entry `json:"entries"`

	// MerkleRoot over all backup IDs, for a cheap tamper check
	// without re-verifying the full signature.
	MerkleRoot string `json:"merkle_root"`

	Signature string `json:"signature,omitempty"`
}

// Manager loads, mutates, signs, and persists a Catalog.
type Manager struct {
	storePath  string
	ownerKeyID string
	privateKey []byte
	publicKey  []byte
	mu         sync.RWMutex
	catalog    *Catalog
	logger     *zap.Logger
}

// SetLogger replaces the manager's logger, scoping its ledger mutation
// and integrity-check log lines to a caller-supplied *zap.Logger instead
// of the process default.
func (m *Manager) SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	m.logger = l
}

// NewManager creates a manager rooted at storePath, loading an
// existing catalog if one is present.
func NewManager(storePath, ownerKeyID string, privateKey, publicKey []byte) (*Manager, error) {
	if storePath == "" {
		return nil, errors.New("store path required")
	}

	if err := os.MkdirAll(storePath, 0700); err != nil {
		return nil, fmt.Errorf("catalog: create store dir: %w", err)
	}

	m := &Manager{
		storePath:  storePath,
		ownerKeyID: ownerKeyID,
		privateKey: privateKey,
		publicKey:  publicKey,
		logger:     logging.L(),
	}

	if err := m.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog: load: %w", err)
	}

	return m, nil
}

func (m *Manager) catalogPath() string {
	return filepath.Join(m.storePath, "catalog.json")
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.catalogPath())
	if err != nil {
		return err
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("catalog: parse: %w", err)
	}

	m.catalog = &c
	return nil
}

func (m *Manager) save() error {
	if m.catalog == nil {
		return errors.New("catalog: nothing to save")
	}

	data, err := json.MarshalIndent(m.catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal: %w", err)
	}

	return os.WriteFile(m.catalogPath(), data, 0600)
}

// Initialize creates a fresh, empty, signed catalog.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.catalog = &Catalog{
		Version:   1,
		OwnerID:   m.ownerKeyID,
		CreatedAt: now,
		UpdatedAt: now,
		Entries:   []Entry{},
	}

	return m.signAndSave()
}

// AddBackup appends entry to the catalog, refusing duplicate backup IDs.
func (m *Manager) AddBackup(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.catalog == nil {
		return errors.New("catalog: not initialized")
	}

	for _, e := range m.catalog.Entries {
		if e.BackupID == entry.BackupID {
			return fmt.Errorf("catalog: backup %s already recorded", entry.BackupID)
		}
	}

	m.catalog.Entries = append(m.catalog.Entries, entry)
	m.catalog.UpdatedAt = time.Now()

	if err := m.signAndSave(); err != nil {
		return err
	}
	m.logger.Info("catalog: backup recorded", zap.String("backupId", entry.BackupID), zap.Int("fileCount", entry.FileCount))
	return nil
}

// RemoveBackup removes backupID from the catalog — used only when a
// retention run has confirmed deletion of that backup's manifest and
// objects, so the ledger doesn't grow a phantom entry.
func (m *Manager) RemoveBackup(backupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.catalog == nil {
		return errors.New("catalog: not initialized")
	}

	found := false
	remaining := make([]Entry, 0, len(m.catalog.Entries))
	for _, e := range m.catalog.Entries {
		if e.BackupID == backupID {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}

	if !found {
		return fmt.Errorf("catalog: backup %s not found", backupID)
	}

	m.catalog.Entries = remaining
	m.catalog.UpdatedAt = time.Now()

	if err := m.signAndSave(); err != nil {
		return err
	}
	m.logger.Info("catalog: backup removed", zap.String("backupId", backupID))
	return nil
}

func (m *Manager) signAndSave() error {
	m.catalog.MerkleRoot = m.computeMerkleRoot()

	hash, err := m.catalogHash()
	if err != nil {
		return err
	}

	if m.privateKey != nil {
		sig, err := crypto.Sign(m.privateKey, hash)
		if err != nil {
			return fmt.Errorf("catalog: sign: %w", err)
		}
		m.catalog.Signature = hex.EncodeToString(sig)
	}

	return m.save()
}

// catalogHash computes the hash a signature is over, excluding the
// signature field itself.
func (m *Manager) catalogHash() ([]byte, error) {
	data := struct {
		Version    int       `json:"version"`
		OwnerID    string    `json:"owner_id"`
		CreatedAt  int64     `json:"created_at"`
		UpdatedAt  int64     `json:"updated_at"`
		MerkleRoot string    `json:"merkle_root"`
		Entries    []Entry   `json:"entries"`
	}{
		Version:    m.catalog.Version,
		OwnerID:    m.catalog.OwnerID,
		CreatedAt:  m.catalog.CreatedAt.Unix(),
		UpdatedAt:  m.catalog.UpdatedAt.Unix(),
		MerkleRoot: m.catalog.MerkleRoot,
		Entries:    m.catalog.Entries,
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(jsonBytes)
	return hash[:], nil
}

// computeMerkleRoot builds a merkle tree over sorted backup IDs.
func (m *Manager) computeMerkleRoot() string {
	if len(m.catalog.Entries) == 0 {
		return ""
	}

	ids := make([]string, len(m.catalog.Entries))
	for i, e := range m.catalog.Entries {
		ids[i] = e.BackupID
	}
	sort.Strings(ids)

	hashes := make([][]byte, len(ids))
	for i, id := range ids {
		h := sha256.Sum256([]byte(id))
		hashes[i] = h[:]
	}

	for len(hashes) > 1 {
		var next [][]byte
		for i := 0; i < len(hashes); i += 2 {
			if i+1 < len(hashes) {
				combined := append(append([]byte{}, hashes[i]...), hashes[i+1]...)
				h := sha256.Sum256(combined)
				next = append(next, h[:])
			} else {
				next = append(next, hashes[i])
			}
		}
		hashes = next
	}

	return hex.EncodeToString(hashes[0])
}

// Verify checks the catalog's merkle root and owner signature.
func (m *Manager) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.catalog == nil {
		return errors.New("catalog: not loaded")
	}
	if m.catalog.Signature == "" {
		return errors.New("catalog: not signed")
	}

	if expected := m.computeMerkleRoot(); m.catalog.MerkleRoot != expected {
		return errors.New("catalog: merkle root mismatch, catalog may be tampered")
	}

	hash, err := m.catalogHash()
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(m.catalog.Signature)
	if err != nil {
		return fmt.Errorf("catalog: invalid signature encoding: %w", err)
	}

	if !crypto.Verify(m.publicKey, hash, sig) {
		return errors.New("catalog: signature verification failed")
	}

	return nil
}

// IntegrityReport is the result of comparing the catalog against
// what's actually present on storage.
type IntegrityReport struct {
	Verified        bool      `json:"verified"`
	CheckedAt       time.Time `json:"checked_at"`
	TotalInCatalog  int       `json:"total_in_catalog"`
	TotalOnStorage  int       `json:"total_on_storage"`
	Missing         []string  `json:"missing,omitempty"`    // catalogued but not on storage
	Unexpected      []string  `json:"unexpected,omitempty"` // on storage but never catalogued
	Errors          []string  `json:"errors,omitempty"`
}

// CheckIntegrity compares the signed catalog against the backup IDs
// getBackupIDsOnStorage reports as currently present.
func (m *Manager) CheckIntegrity(getBackupIDsOnStorage func() ([]string, error)) (*IntegrityReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := &IntegrityReport{CheckedAt: time.Now()}

	if m.catalog == nil {
		report.Errors = append(report.Errors, "catalog not loaded")
		return report, nil
	}

	if err := m.Verify(); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("catalog verification failed: %v", err))
	}

	expected := make(map[string]bool)
	for _, e := range m.catalog.Entries {
		expected[e.BackupID] = true
	}
	report.TotalInCatalog = len(expected)

	actualIDs, err := getBackupIDsOnStorage()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list storage: %v", err))
		return report, nil
	}

	actual := make(map[string]bool)
	for _, id := range actualIDs {
		actual[id] = true
	}
	report.TotalOnStorage = len(actual)

	for id := range expected {
		if !actual[id] {
			report.Missing = append(report.Missing, id)
		}
	}
	for id := range actual {
		if !expected[id] {
			report.Unexpected = append(report.Unexpected, id)
		}
	}

	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)

	report.Verified = len(report.Missing) == 0 && len(report.Errors) == 0

	if report.Verified {
		m.logger.Info("catalog integrity check passed", zap.Int("totalInCatalog", report.TotalInCatalog))
	} else {
		m.logger.Warn("catalog integrity check failed",
			zap.Int("missing", len(report.Missing)), zap.Int("unexpected", len(report.Unexpected)), zap.Strings("errors", report.Errors))
	}

	return report, nil
}

// Get returns a copy of the current catalog.
func (m *Manager) Get() *Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.catalog == nil {
		return nil
	}

	out := *m.catalog
	out.Entries = make([]Entry, len(m.catalog.Entries))
	copy(out.Entries, m.catalog.Entries)
	return &out
}

// GetEntry returns the catalog entry for backupID, or nil.
func (m *Manager) GetEntry(backupID string) *Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.catalog == nil {
		return nil
	}

	for _, e := range m.catalog.Entries {
		if e.BackupID == backupID {
			entry := e
			return &entry
		}
	}

	return nil
}

// Count returns the number of backups recorded in the catalog.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.catalog == nil {
		return 0
	}
	return len(m.catalog.Entries)
}
