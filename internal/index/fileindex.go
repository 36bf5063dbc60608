// Package index maintains the persistent file index change detection
// reads from (and writes to) between backups, and classifies each scanned
// file against it.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
)

// FileStat is what the index remembers about one tracked file. RemotePath,
// Compressed, and Encrypted are carried alongside the change-detection
// fields so an Unchanged or MetadataChanged file can be re-listed in a
// new manifest without re-uploading its ciphertext. Unchanged
// files reference their previously-uploaded object by remote_path).
type FileStat struct {
	Size       int64     `json:"size"`
	Modified   time.Time `json:"modified"`
	Hash       string    `json:"hash"`
	RemotePath string    `json:"remote_path,omitempty"`
	Compressed bool      `json:"compressed,omitempty"`
	Encrypted  bool      `json:"encrypted,omitempty"`
}

// FileIndex is the change tracker's persistent state: everything it knew
// about the source tree as of the backup that produced it.
type FileIndex struct {
	TrackedDirs []string            `json:"tracked_dirs"`
	Files       map[string]FileStat `json:"files"`
	CreatedAt   time.Time           `json:"created_at"`
	BackupID    string              `json:"backup_id,omitempty"`
}

// New returns an empty index for the given tracked directories.
func New(trackedDirs []string) *FileIndex {
	return &FileIndex{
		TrackedDirs: trackedDirs,
		Files:       make(map[string]FileStat),
		CreatedAt:   time.Now().UTC(),
	}
}

func latestPath(dir string) string {
	return filepath.Join(dir, "index_latest.json")
}

func backupPath(dir, backupID string) string {
	return filepath.Join(dir, "index_"+backupID+".json")
}

// LoadLatest reads the most recently saved index, or returns an empty
// FileIndex with TrackedDirs set but no entries if none exists yet — the
// change tracker treats that the same as "no previous index" (full
// backup).
func LoadLatest(dir string, trackedDirs []string) (*FileIndex, error) {
	data, err := os.ReadFile(latestPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return New(trackedDirs), nil
		}
		return nil, apperrors.New(apperrors.KindIO, err)
	}
	var idx FileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, apperrors.New(apperrors.KindIO, err)
	}
	return &idx, nil
}

// Save persists idx as both index_<backupID>.json (a pinned per-backup
// snapshot, pruned when that backup is deleted) and index_latest.json
// (what the next backup's change tracker reads).
func (idx *FileIndex) Save(dir, backupID string) error {
	idx.BackupID = backupID
	if err := os.MkdirAll(dir, 0700); err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}

	if err := writeAtomic(backupPath(dir, backupID), data); err != nil {
		return err
	}
	return writeAtomic(latestPath(dir), data)
}

// Prune removes the per-backup pinned snapshot for a deleted backup. The
// "latest" snapshot is left untouched even if it happens to be the one
// being pruned, since callers only prune indices for backups retention
// has already decided to delete, never the most recent one.
func Prune(dir, backupID string) error {
	err := os.Remove(backupPath(dir, backupID))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.New(apperrors.KindIO, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}
	return nil
}
