package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/skylock/skylock/internal/compress"
	"github.com/skylock/skylock/internal/container"
	"github.com/skylock/skylock/internal/crypto"
	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
)

// FileConfig carries the per-backup settings ProcessFile needs that stay
// constant across every file in the run.
type FileConfig struct {
	BackupID                string
	BackupRoot              string
	MasterKey               *crypto.SecretBytes
	Suite                   crypto.CipherSuite
	HashAlgorithm           manifest.HashAlgorithm
	CompressionLevel        compress.Level
	CompressionCustomLevel  int
	Backend                 storage.Backend
	Throttle                *Throttle
}

// ProcessFile runs one file through the hash -> compress -> encrypt ->
// throttle -> upload pipeline and returns the
// FileEntry the caller should record in the manifest (stage 8).
func ProcessFile(ctx context.Context, cfg FileConfig, localPath, relPath string) (manifest.FileEntry, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return manifest.FileEntry{}, apperrors.New(apperrors.KindIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return manifest.FileEntry{}, apperrors.New(apperrors.KindIO, err)
	}

	plaintext, err := io.ReadAll(f)
	if err != nil {
		return manifest.FileEntry{}, apperrors.New(apperrors.KindIO, err)
	}

	contentSum := sha256.Sum256(plaintext)
	contentHash := hex.EncodeToString(contentSum[:])

	entryHash, err := fileHash(cfg, contentHash, plaintext)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	payload, compressed, err := maybeCompress(cfg, plaintext)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	blockKey, err := crypto.DeriveBlockKey(cfg.MasterKey.Bytes(), contentHash)
	if err != nil {
		return manifest.FileEntry{}, err
	}
	defer blockKey.Zero()

	aad := crypto.ChunkAAD(cfg.BackupID, cfg.Suite, relPath)
	ciphertext, err := container.Encrypt(blockKey, cfg.Suite, aad, payload)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	remotePath := fmt.Sprintf("%s/%s/%s.enc", cfg.BackupRoot, cfg.BackupID, contentHash)
	body := cfg.Throttle.Reader(ctx, bytes.NewReader(ciphertext))
	if _, err := cfg.Backend.Upload(ctx, remotePath, body, int64(len(ciphertext)), storage.Options{}); err != nil {
		return manifest.FileEntry{}, apperrors.New(apperrors.KindNetwork, err)
	}

	return manifest.FileEntry{
		LocalPath:  relPath,
		RemotePath: remotePath,
		Size:       info.Size(),
		Modified:   info.ModTime(),
		Hash:       entryHash,
		Compressed: compressed,
		Encrypted:  true,
	}, nil
}

// fileHash computes the manifest's declared hash for plaintext under
// cfg.HashAlgorithm. contentHash (plain SHA-256, hex) is reused directly
// when the algorithm is sha256; hmac-sha256 manifests derive a dedicated
// subkey and re-hash rather than reusing the plain digest, so the two
// algorithms never share a tag.
func fileHash(cfg FileConfig, contentHash string, plaintext []byte) (string, error) {
	if cfg.HashAlgorithm != manifest.HashHMACSHA256 {
		return contentHash, nil
	}
	hmacKey, err := crypto.DeriveHMACKey(cfg.MasterKey.Bytes())
	if err != nil {
		return "", err
	}
	defer hmacKey.Zero()
	return hex.EncodeToString(crypto.ComputeHMAC(hmacKey.Bytes(), plaintext)), nil
}

// maybeCompress applies the spec's transparency rule: compression is
// only attempted above the size threshold, and its output is discarded
// if it did not actually shrink the data.
func maybeCompress(cfg FileConfig, plaintext []byte) (payload []byte, compressed bool, err error) {
	if len(plaintext) <= compress.MinSizeToAttempt {
		return plaintext, false, nil
	}
	out, err := compress.Compress(plaintext, cfg.CompressionLevel, cfg.CompressionCustomLevel)
	if err != nil {
		return nil, false, err
	}
	if compress.ShouldKeep(len(plaintext), len(out)) {
		return out, true, nil
	}
	return plaintext, false, nil
}
