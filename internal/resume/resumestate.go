// Package resume persists the per-backup progress record the engine
// consults on startup to continue an interrupted backup between files
// rather than restarting it from scratch.
package resume

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/skylock/skylock/internal/filelock"
)

// purgeAfter is how long an inactive resume state is kept before it is
// considered abandoned and eligible for purge.
const purgeAfter = 7 * 24 * time.Hour

// State is the on-disk record of one in-progress backup.
type State struct {
	BackupID      string          `json:"backup_id"`
	StartedAt     time.Time       `json:"started_at"`
	LastUpdated   time.Time       `json:"last_updated"`
	SourcePaths   []string        `json:"source_paths"`
	UploadedFiles map[string]bool `json:"uploaded_files"`
	TotalFiles    int             `json:"total_files"`
}

// New starts a fresh resume state for backupID.
func New(backupID string, sourcePaths []string, totalFiles int) *State {
	now := time.Now().UTC()
	return &State{
		BackupID:      backupID,
		StartedAt:     now,
		LastUpdated:   now,
		SourcePaths:   sourcePaths,
		UploadedFiles: make(map[string]bool),
		TotalFiles:    totalFiles,
	}
}

func statePath(dir, backupID string) string {
	return filepath.Join(dir, "resume_"+backupID+".json")
}

// Load reads the resume state for backupID, or returns
// apperrors.ErrResumeStateNotFound if none exists.
func Load(dir, backupID string) (*State, error) {
	data, err := os.ReadFile(statePath(dir, backupID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrResumeStateNotFound
		}
		return nil, apperrors.New(apperrors.KindIO, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.New(apperrors.KindIO, err)
	}
	return &s, nil
}

// FindResumable scans dir for a non-purged resume state whose
// SourcePaths match sourcePaths exactly, returning nil if none is found.
// A backup resumes only between files, never mid-file, so this is the
// only lookup the engine needs to decide whether to re-enter a prior run.
func FindResumable(dir string, sourcePaths []string) (*State, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.New(apperrors.KindIO, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || len(name) < len("resume_.json") || name[:7] != "resume_" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var s State
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		if time.Since(s.LastUpdated) > purgeAfter {
			continue
		}
		if samePaths(s.SourcePaths, sourcePaths) {
			return &s, nil
		}
	}
	return nil, nil
}

// InProgress reports whether this resume state's lock is currently held
// by another process. Save holds the lock only while it writes the state
// file, so a backup that is running between those writes reports false.
func (s *State) InProgress(dir string) (bool, error) {
	lock := filelock.New(statePath(dir, s.BackupID))
	return lock.IsHeld()
}

func samePaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Save atomically persists the state under a file lock, serializing
// concurrent updates from the worker that just finished uploading a file.
func (s *State) Save(dir string) error {
	s.LastUpdated = time.Now().UTC()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}

	lock := filelock.New(statePath(dir, s.BackupID))
	return lock.WithLock(func() error {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return apperrors.New(apperrors.KindIO, err)
		}
		path := statePath(dir, s.BackupID)
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return apperrors.New(apperrors.KindIO, err)
		}
		return os.Rename(tmp, path)
	})
}

// MarkUploaded records localPath as uploaded and persists the change.
func (s *State) MarkUploaded(dir, localPath string) error {
	s.UploadedFiles[localPath] = true
	return s.Save(dir)
}

// IsUploaded reports whether localPath was already uploaded in this run.
func (s *State) IsUploaded(localPath string) bool {
	return s.UploadedFiles[localPath]
}

// Delete removes the resume state on successful backup completion.
func Delete(dir, backupID string) error {
	err := os.Remove(statePath(dir, backupID))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.New(apperrors.KindIO, err)
	}
	return nil
}

// PurgeStale removes every resume state in dir inactive for more than
// purgeAfter.
func PurgeStale(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.New(apperrors.KindIO, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || len(name) < 7 || name[:7] != "resume_" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var s State
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		if time.Since(s.LastUpdated) > purgeAfter {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}
