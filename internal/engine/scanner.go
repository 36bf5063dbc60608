package engine

import (
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
)

// maxScanDepth bounds recursion so a pathological symlink loop outside
// the NOT-followed case, or an adversarial directory tree, cannot spin
// the scanner forever.
const maxScanDepth = 100

// ScanEntry is one regular file discovered under a source path.
type ScanEntry struct {
	Path     string
	Size     int64
	Modified time.Time
}

// Scan walks each of sourcePaths recursively, visiting fn for every
// regular file found. Symlinks are never followed (a symlink entry is
// skipped, never dereferenced), and special files (sockets, FIFOs,
// devices, char devices) are skipped outright. Scan returns the first
// error fn returns, stopping the walk.
func Scan(sourcePaths []string, fn func(ScanEntry) error) error {
	for _, root := range sourcePaths {
		if err := scanOne(root, fn); err != nil {
			return err
		}
	}
	return nil
}

func scanOne(root string, fn func(ScanEntry) error) error {
	return walk(root, root, 0, fn)
}

func walk(root, path string, depth int, fn func(ScanEntry) error) error {
	if depth > maxScanDepth {
		return nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		return apperrors.New(apperrors.KindIO, err)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return nil
	case mode.IsRegular():
		return fn(ScanEntry{Path: path, Size: info.Size(), Modified: info.ModTime()})
	case mode.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return apperrors.New(apperrors.KindIO, err)
		}
		for _, entry := range entries {
			if err := walk(root, filepath.Join(path, entry.Name()), depth+1, fn); err != nil {
				return err
			}
		}
		return nil
	default:
		// Socket, FIFO, device, char device, or other special file.
		return nil
	}
}
