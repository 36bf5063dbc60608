package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalBackend is a filesystem-rooted Backend implementation used for
// local/staging deployments and by the test suite. Writes land via a
// temp-file-then-rename so a reader never observes a partially written
// object, the same discipline the reference HTTPServer uses on the wire.
type LocalBackend struct {
	root string
}

// NewLocalBackend roots a LocalBackend at dir, creating it if necessary.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &LocalBackend{root: dir}, nil
}

func (b *LocalBackend) resolve(remotePath string) (string, error) {
	for _, seg := range strings.Split(strings.ReplaceAll(remotePath, "\\", "/"), "/") {
		if seg == ".." {
			return "", fmt.Errorf("storage: invalid remote path %q", remotePath)
		}
	}
	clean := filepath.Clean("/" + remotePath)
	return filepath.Join(b.root, clean), nil
}

func (b *LocalBackend) Upload(ctx context.Context, remotePath string, r io.Reader, sizeHint int64, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := b.resolve(remotePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	written, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("storage: write: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("storage: close temp: %w", closeErr)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("storage: finalize: %w", err)
	}
	return fmt.Sprintf("%d-%d", written, time.Now().UnixNano()), nil
}

func (b *LocalBackend) Download(ctx context.Context, remotePath string, w io.Writer, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(remotePath)
	if err != nil {
		return err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage: %s: %w", remotePath, os.ErrNotExist)
		}
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (b *LocalBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	full, err := b.resolve(remotePath)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *LocalBackend) Delete(ctx context.Context, remotePath string) error {
	full, err := b.resolve(remotePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *LocalBackend) List(ctx context.Context, prefix string, recursive bool) ([]ObjectMeta, error) {
	base, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var out []ObjectMeta
	walkErr := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if !recursive && path != base {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		out = append(out, ObjectMeta{
			RemotePath:   filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemotePath < out[j].RemotePath })
	return out, nil
}

func (b *LocalBackend) Copy(ctx context.Context, src, dst string) error {
	srcFull, err := b.resolve(src)
	if err != nil {
		return err
	}
	f, err := os.Open(srcFull)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = b.Upload(ctx, dst, f, -1, Options{})
	return err
}

func (b *LocalBackend) Metadata(ctx context.Context, remotePath string) (ObjectMeta, error) {
	full, err := b.resolve(remotePath)
	if err != nil {
		return ObjectMeta{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMeta{}, fmt.Errorf("storage: %s: %w", remotePath, os.ErrNotExist)
		}
		return ObjectMeta{}, err
	}
	return ObjectMeta{
		RemotePath:   remotePath,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}
