package restore

import (
	"context"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/skylock/skylock/internal/manifest"
)

// VerifyMode selects how thoroughly Verify checks a manifest's files
// against the storage backend.
type VerifyMode string

const (
	// VerifyQuick only checks that every entry's remote object exists.
	VerifyQuick VerifyMode = "quick"
	// VerifyFull downloads, decrypts, decompresses, and hash-checks every
	// entry exactly as a real restore would, without writing anything.
	VerifyFull VerifyMode = "full"
)

// Verify checks every selected entry in m without writing to disk. In
// quick mode it only confirms the remote object exists; in full mode it
// downloads, decrypts, decompresses, and hash-verifies each one.
func Verify(ctx context.Context, m *manifest.BackupManifest, opts Options, mode VerifyMode, paths []string) (*Result, error) {
	if err := VerifyManifestSignature(m, opts.PublicKey); err != nil {
		return nil, err
	}

	result := &Result{}
	entries := selectEntries(m.Files, paths)

	for _, entry := range entries {
		res := verifyOne(ctx, m, entry, opts, mode)
		result.record(res)
		if res.Status == StatusFailed && opts.Strict {
			return result, apperrors.Newf(apperrors.KindIO, "strict mode: verify of %s failed: %v", entry.LocalPath, res.Err)
		}
	}
	return result, nil
}

func verifyOne(ctx context.Context, m *manifest.BackupManifest, entry manifest.FileEntry, opts Options, mode VerifyMode) FileResult {
	if mode == VerifyQuick {
		if err := manifest.ValidateRemotePath(entry.RemotePath); err != nil {
			return FileResult{Path: entry.LocalPath, Status: StatusFailed, Err: err}
		}
		exists, err := opts.Backend.Exists(ctx, entry.RemotePath)
		if err != nil {
			return FileResult{Path: entry.LocalPath, Status: StatusFailed, Err: apperrors.New(apperrors.KindNetwork, err)}
		}
		if !exists {
			return FileResult{Path: entry.LocalPath, Status: StatusFailed,
				Err: apperrors.Newf(apperrors.KindNotFound, "remote object %s is missing", entry.RemotePath)}
		}
		return FileResult{Path: entry.LocalPath, Status: StatusRestored}
	}

	_, hashOK, err := downloadAndVerify(ctx, m, entry, opts)
	if err != nil {
		return FileResult{Path: entry.LocalPath, Status: StatusFailed, Err: err}
	}
	if !hashOK {
		return FileResult{Path: entry.LocalPath, Status: StatusHashMismatch,
			Err: apperrors.NewCryptoError(apperrors.ReasonHashMismatch, nil)}
	}
	return FileResult{Path: entry.LocalPath, Status: StatusRestored}
}
