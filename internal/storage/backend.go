// Package storage implements the pluggable object-storage backend used by
// the backup engine and restore pipeline, plus a reference HTTP server that
// implements the backend's wire contract for self-hosted deployments.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectMeta describes a stored object as reported by list/metadata calls.
type ObjectMeta struct {
	RemotePath   string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Options carries the transport hints recognized by the core. Backends that
// don't support a given hint are free to ignore it.
type Options struct {
	MultipartThreshold  int64
	MultipartPartSize   int64
	ServerSideEncryption string
	ContentType         string
}

// Backend is the narrow capability interface every storage transport
// implementation must satisfy. The backup and restore pipelines depend only
// on this interface, never on a concrete provider client, so a WebDAV, SFTP,
// or S3 implementation can be swapped in without touching engine code.
type Backend interface {
	Upload(ctx context.Context, remotePath string, r io.Reader, sizeHint int64, opts Options) (etag string, err error)
	Download(ctx context.Context, remotePath string, w io.Writer, opts Options) error
	Exists(ctx context.Context, remotePath string) (bool, error)
	Delete(ctx context.Context, remotePath string) error
	List(ctx context.Context, prefix string, recursive bool) ([]ObjectMeta, error)
	Copy(ctx context.Context, src, dst string) error
	Metadata(ctx context.Context, remotePath string) (ObjectMeta, error)
}
