package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAddedWhenAbsentFromIndex(t *testing.T) {
	idx := New(nil)
	c, needsHash := idx.Classify("/data/new.txt", 10, time.Now())
	assert.Equal(t, Added, c)
	assert.False(t, needsHash)
	assert.True(t, c.Included())
}

func TestClassifyUnchangedWhenSizeAndMtimeMatch(t *testing.T) {
	now := time.Now().UTC()
	idx := New(nil)
	idx.Files["/data/a.txt"] = FileStat{Size: 100, Modified: now, Hash: "aaa"}

	c, needsHash := idx.Classify("/data/a.txt", 100, now)
	assert.Equal(t, Unchanged, c)
	assert.False(t, needsHash)
	assert.False(t, c.Included())
}

func TestClassifyNeedsHashWhenSizeDiffers(t *testing.T) {
	now := time.Now().UTC()
	idx := New(nil)
	idx.Files["/data/a.txt"] = FileStat{Size: 100, Modified: now, Hash: "aaa"}

	_, needsHash := idx.Classify("/data/a.txt", 200, now)
	assert.True(t, needsHash)
}

func TestResolveModifiedWhenHashDiffers(t *testing.T) {
	idx := New(nil)
	idx.Files["/data/a.txt"] = FileStat{Hash: "aaa"}
	assert.Equal(t, Modified, idx.Resolve("/data/a.txt", "bbb"))
}

func TestResolveMetadataChangedWhenHashMatches(t *testing.T) {
	idx := New(nil)
	idx.Files["/data/a.txt"] = FileStat{Hash: "aaa"}
	c := idx.Resolve("/data/a.txt", "aaa")
	assert.Equal(t, MetadataChanged, c)
	assert.False(t, c.Included())
}

func TestRemovedSinceReportsUntrackedPaths(t *testing.T) {
	idx := New(nil)
	idx.Files["/data/a.txt"] = FileStat{}
	idx.Files["/data/b.txt"] = FileStat{}

	removed := idx.RemovedSince(map[string]bool{"/data/a.txt": true})
	assert.Equal(t, []string{"/data/b.txt"}, removed)
}
