package restore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocalPathJoinsWithinTarget(t *testing.T) {
	target := t.TempDir()
	full, err := resolveLocalPath(target, "sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "sub", "file.txt"), full)
}

func TestResolveLocalPathRejectsAbsolutePath(t *testing.T) {
	_, err := resolveLocalPath(t.TempDir(), "/etc/passwd")
	assert.Error(t, err)
}

func TestResolveLocalPathRejectsEmptyPath(t *testing.T) {
	_, err := resolveLocalPath(t.TempDir(), "")
	assert.Error(t, err)
}

func TestResolveLocalPathRejectsTraversalEscape(t *testing.T) {
	target := t.TempDir()
	_, err := resolveLocalPath(target, "../escape.txt")
	assert.Error(t, err)
}

func TestResolveLocalPathAllowsTargetRootItself(t *testing.T) {
	target := t.TempDir()
	full, err := resolveLocalPath(target, "file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "file.txt"), full)
}
