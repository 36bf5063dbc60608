package index

import "time"

// Classification is the change tracker's verdict for one scanned file
// against the previous FileIndex.
type Classification string

const (
	Added           Classification = "added"
	Modified        Classification = "modified"
	MetadataChanged Classification = "metadata_changed"
	Removed         Classification = "removed"
	Unchanged       Classification = "unchanged"
)

// Included reports whether an incremental backup should upload a file
// with this classification.
func (c Classification) Included() bool {
	return c == Added || c == Modified
}

// Classify compares one scanned file's size/mtime against idx and
// reports its classification plus whether a hash still needs to be
// computed to resolve it. Hashing is lazy: a size and mtime match against
// the previous entry is enough to call it Unchanged without ever reading
// the file's bytes; only a mismatch forces the caller to hash and call
// Resolve.
func (idx *FileIndex) Classify(path string, size int64, modified time.Time) (classification Classification, needsHash bool) {
	prev, ok := idx.Files[path]
	if !ok {
		return Added, false
	}
	if prev.Size == size && prev.Modified.Equal(modified) {
		return Unchanged, false
	}
	return "", true
}

// Resolve finishes a Classify call that returned needsHash=true, given
// the newly computed plaintext hash for path.
func (idx *FileIndex) Resolve(path, hash string) Classification {
	prev, ok := idx.Files[path]
	if !ok || prev.Hash != hash {
		return Modified
	}
	return MetadataChanged
}

// RemovedSince returns every path idx tracked that is absent from seen —
// the set of paths the current scan actually visited, keyed by absolute
// path. The index records this absence by simply not carrying the path
// forward into the next saved index; this method only reports it for
// progress/diagnostics.
func (idx *FileIndex) RemovedSince(seen map[string]bool) []string {
	var removed []string
	for path := range idx.Files {
		if !seen[path] {
			removed = append(removed, path)
		}
	}
	return removed
}
