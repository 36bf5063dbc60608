package integrity

import (
	"context"
	"fmt"

	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
)

// CompareAgainstListing checks the manifests known for one backup_root
// against what backend.List actually reports there: files a manifest
// declares but storage no longer has, and objects storage has that no
// known manifest references (orphans left by an interrupted backup or
// a partially-applied retention deletion).
func CompareAgainstListing(ctx context.Context, backend storage.Backend, backupRoot string, manifests []*manifest.BackupManifest) (missing, orphans []string, err error) {
	listed, err := backend.List(ctx, backupRoot, true)
	if err != nil {
		return nil, nil, fmt.Errorf("integrity: list %s: %w", backupRoot, err)
	}
	onStorage := make(map[string]bool, len(listed))
	for _, obj := range listed {
		onStorage[obj.RemotePath] = true
	}

	declared := make(map[string]bool)
	for _, m := range manifests {
		for _, f := range m.Files {
			declared[f.RemotePath] = true
			if !onStorage[f.RemotePath] {
				missing = append(missing, f.RemotePath)
			}
		}
	}
	for path := range onStorage {
		if !declared[path] {
			orphans = append(orphans, path)
		}
	}
	return missing, orphans, nil
}
