package manifest

import (
	"fmt"
	"path"
	"strings"
)

// validateRemotePath enforces spec's remote_path invariant: relative, no
// ".." traversal, no drive letters, no leading separator.
func validateRemotePath(p string) error {
	if p == "" {
		return fmt.Errorf("remote_path is empty")
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return fmt.Errorf("remote_path %q has a leading separator", p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return fmt.Errorf("remote_path %q looks like a drive letter", p)
	}
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("remote_path %q escapes the backup directory", p)
	}
	return nil
}

// ValidateRemotePath is the exported form of validateRemotePath for
// callers outside this package (the restore path re-validates every
// entry's remote_path before downloading it).
func ValidateRemotePath(p string) error {
	return validateRemotePath(p)
}
