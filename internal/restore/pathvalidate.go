package restore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveLocalPath renders a manifest entry's local_path against
// targetDir, rejecting any path that would canonicalize outside it —
// no ".." traversal, no absolute escape.
func resolveLocalPath(targetDir, localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("restore: local_path is empty")
	}
	if filepath.IsAbs(localPath) {
		return "", fmt.Errorf("restore: local_path %q must be relative", localPath)
	}
	full := filepath.Join(targetDir, localPath)
	cleanTarget := filepath.Clean(targetDir)
	if full != cleanTarget && !strings.HasPrefix(full, cleanTarget+string(filepath.Separator)) {
		return "", fmt.Errorf("restore: local_path %q escapes target directory", localPath)
	}
	return full, nil
}
