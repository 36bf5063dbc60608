package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
)

// manifestPath returns the remote path of backupID's manifest, following
// the {backup_root}/{backup_id}/manifest.json layout the reference
// storage server and backup engine tests use.
func manifestPath(backupID string) string {
	return path.Join(backupRoot, backupID, "manifest.json")
}

// saveManifest uploads m's JSON encoding to its conventional path.
func saveManifest(ctx context.Context, backend storage.Backend, m *manifest.BackupManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	_, err = backend.Upload(ctx, manifestPath(m.BackupID), bytes.NewReader(data), int64(len(data)), storage.Options{ContentType: "application/json"})
	return err
}

// loadManifest downloads and parses backupID's manifest.
func loadManifest(ctx context.Context, backend storage.Backend, backupID string) (*manifest.BackupManifest, error) {
	var buf bytes.Buffer
	if err := backend.Download(ctx, manifestPath(backupID), &buf, storage.Options{}); err != nil {
		return nil, fmt.Errorf("download manifest: %w", err)
	}
	var m manifest.BackupManifest
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// listBackupIDs lists every backup ID with a manifest on the backend,
// by listing everything under backupRoot recursively and keeping the IDs
// whose <id>/manifest.json object is present.
func listBackupIDs(ctx context.Context, backend storage.Backend) ([]string, error) {
	objects, err := backend.List(ctx, backupRoot+"/", true)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	seen := make(map[string]bool)
	for _, obj := range objects {
		if !strings.HasSuffix(obj.RemotePath, "/manifest.json") {
			continue
		}
		rel := strings.TrimPrefix(obj.RemotePath, backupRoot+"/")
		id := strings.TrimSuffix(rel, "/manifest.json")
		if id != "" {
			seen[id] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// latestBackupID returns the most recently created backup's ID, chosen
// by loading every manifest's timestamp. Used by commands that default
// to "the most recent backup" when none is named explicitly.
func latestBackupID(ctx context.Context, backend storage.Backend) (string, error) {
	ids, err := listBackupIDs(ctx, backend)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no backups found")
	}

	var latestID string
	var latest *manifest.BackupManifest
	for _, id := range ids {
		m, err := loadManifest(ctx, backend, id)
		if err != nil {
			continue
		}
		if latest == nil || m.Timestamp.After(latest.Timestamp) {
			latest = m
			latestID = id
		}
	}
	if latest == nil {
		return "", fmt.Errorf("no readable backups found")
	}
	return latestID, nil
}
