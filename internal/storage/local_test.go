package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBackendUploadDownloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("ciphertext-blob")

	_, err = backend.Upload(ctx, "root/backup-1/deadbeef.enc", bytes.NewReader(payload), int64(len(payload)), Options{})
	require.NoError(t, err)

	exists, err := backend.Exists(ctx, "root/backup-1/deadbeef.enc")
	require.NoError(t, err)
	require.True(t, exists)

	var out bytes.Buffer
	require.NoError(t, backend.Download(ctx, "root/backup-1/deadbeef.enc", &out, Options{}))
	require.Equal(t, payload, out.Bytes())
}

func TestLocalBackendDeleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, backend.Delete(ctx, "root/backup-1/missing.enc"))
}

func TestLocalBackendRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)

	_, err = backend.Upload(context.Background(), "../escape.enc", bytes.NewReader([]byte("x")), 1, Options{})
	require.Error(t, err)
}

func TestLocalBackendListIsSortedAndSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = backend.Upload(ctx, "root/b1/bbb.enc", bytes.NewReader([]byte("1")), 1, Options{})
	require.NoError(t, err)
	_, err = backend.Upload(ctx, "root/b1/aaa.enc", bytes.NewReader([]byte("2")), 1, Options{})
	require.NoError(t, err)

	objs, err := backend.List(ctx, "root/b1", true)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, "root/b1/aaa.enc", objs[0].RemotePath)
	require.Equal(t, "root/b1/bbb.enc", objs[1].RemotePath)
}
