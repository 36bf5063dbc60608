// Package chain tracks the anti-rollback state that guards against a
// tampered or replayed manifest claiming to be newer than it is.
package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/skylock/skylock/internal/manifest"
)

// State is the on-disk anti-rollback record: the highest chain version
// and signing-key fingerprint this install has ever accepted.
type State struct {
	LatestVersion   int64     `json:"latest_version"`
	LatestBackupID  string    `json:"latest_backup_id"`
	KeyFingerprint  string    `json:"key_fingerprint"`
	LastUpdated     time.Time `json:"last_updated"`
}

const stateFileName = "chain_state.json"

// Load reads the chain state from dir/chain_state.json. A missing file is
// not an error — it means no manifest has been accepted yet.
func Load(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, apperrors.New(apperrors.KindIO, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.New(apperrors.KindIO, err)
	}
	return &s, nil
}

// Save atomically persists the chain state.
func (s *State) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}
	path := filepath.Join(dir, stateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}
	return os.Rename(tmp, path)
}

// RotationAuthorization is supplied by an explicit operator action (key rotation)
// to permit a new fingerprint to supersede the recorded one. The manifest
// package has no notion of this; it lives at the chain layer because only
// the chain layer decides whether a fingerprint change is legitimate.
type RotationAuthorization struct {
	NewFingerprint string
}

// CheckAndAdvance enforces spec's anti-rollback rule: a newly observed
// manifest's chain version must be strictly greater than the recorded
// latest_version, and its signing key's fingerprint must match the
// recorded one unless rot authorizes the new fingerprint explicitly. On
// success, the state is advanced and saved.
func (s *State) CheckAndAdvance(dir string, m *manifest.BackupManifest, rot *RotationAuthorization) error {
	if m.Signature == nil {
		return apperrors.NewCryptoError(apperrors.ReasonRollback, apperrors.ErrChainVersionStale)
	}
	if s.KeyFingerprint != "" && m.Signature.Fingerprint != s.KeyFingerprint {
		if rot == nil || rot.NewFingerprint != m.Signature.Fingerprint {
			return apperrors.NewCryptoError(apperrors.ReasonRollback, fmt.Errorf("signing key fingerprint %s does not match recorded %s", m.Signature.Fingerprint, s.KeyFingerprint))
		}
	}
	if s.LatestVersion != 0 && m.ChainVersion <= s.LatestVersion {
		return apperrors.NewCryptoError(apperrors.ReasonRollback, apperrors.ErrChainVersionStale)
	}

	s.LatestVersion = m.ChainVersion
	s.LatestBackupID = m.BackupID
	s.KeyFingerprint = m.Signature.Fingerprint
	s.LastUpdated = time.Now().UTC()
	return s.Save(dir)
}
