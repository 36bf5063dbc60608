package restore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConflictPolicy decides what happens when a file already exists at the
// path a restored entry would write to.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictRename    ConflictPolicy = "rename"
)

// DetectConflicts runs the conflict-detection pass:
// for every path the restore will write to, report whether something
// already exists there. It never modifies the filesystem.
func DetectConflicts(targetDir string, localPaths []string) ([]string, error) {
	var conflicts []string
	for _, lp := range localPaths {
		full, err := resolveLocalPath(targetDir, lp)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(full); err == nil {
			conflicts = append(conflicts, lp)
		}
	}
	return conflicts, nil
}

// resolveWritePath applies policy to decide the final path fullPath
// should be written to, or reports that the entry should be skipped.
func resolveWritePath(fullPath string, policy ConflictPolicy) (writePath string, skip bool, err error) {
	_, statErr := os.Stat(fullPath)
	exists := statErr == nil
	if !exists {
		return fullPath, false, nil
	}
	switch policy {
	case ConflictOverwrite:
		return fullPath, false, nil
	case ConflictRename:
		return renamedPath(fullPath), false, nil
	case ConflictSkip, "":
		return "", true, nil
	default:
		return "", false, fmt.Errorf("restore: unknown conflict policy %q", policy)
	}
}

// renamedPath appends "(n)" before the extension until it finds a name
// that doesn't already exist.
func renamedPath(fullPath string) string {
	dir := filepath.Dir(fullPath)
	base := filepath.Base(fullPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
