package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
	"time"

	"github.com/skylock/skylock/internal/chain"
	"github.com/skylock/skylock/internal/compress"
	"github.com/skylock/skylock/internal/crypto"
	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/skylock/skylock/internal/index"
	"github.com/skylock/skylock/internal/logging"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/resume"
	"github.com/skylock/skylock/internal/storage"
	"go.uber.org/zap"
)

// Options configures one call to Run. StateDir holds the index, resume
// state, and chain state files this backup consults and updates.
type Options struct {
	BackupID               string
	SourcePaths            []string
	Incremental            bool
	Strict                 bool
	Workers                int
	MaxWorkers             int
	BackupRoot             string
	StateDir               string
	MasterKey              *crypto.SecretBytes
	Suite                  crypto.CipherSuite
	EncryptionVersion      manifest.EncryptionVersion
	CompressionLevel       compress.Level
	CompressionCustomLevel int
	MaxBytesPerSec         int
	Backend                storage.Backend
	SigningKey             []byte
	SigningKeyID           string
	RotationAuthorization  *chain.RotationAuthorization
	Observer               func(Event)
	// Logger receives structured events for this run. Nil falls back to
	// logging.L() via logging.Or — see that package's doc comment for why
	// Run takes a logger instead of calling the global directly.
	Logger *zap.Logger
}

// FileFailure records one per-file fatal error the backup continued past
// (unless Strict mode was requested).
type FileFailure struct {
	Path string
	Err  error
}

// Result is what Run returns for a completed (possibly partial) backup.
type Result struct {
	Manifest *manifest.BackupManifest
	Failures []FileFailure
	Resumed  bool
}

const defaultWorkers = 4
const hardMaxWorkers = 32

// Run executes one full backup: scan, classify, process each included
// file across a worker pool, build and (optionally) sign the manifest,
// and advance the anti-rollback chain state.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := logging.Or(opts.Logger).With(zap.String("backupId", opts.BackupID))

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 || maxWorkers > hardMaxWorkers {
		maxWorkers = hardMaxWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	prevIndex, err := index.LoadLatest(opts.StateDir, opts.SourcePaths)
	if err != nil {
		return nil, err
	}
	incremental := opts.Incremental && len(prevIndex.Files) > 0

	resumed := false
	state, err := resume.FindResumable(opts.StateDir, opts.SourcePaths)
	if err != nil {
		return nil, err
	}
	if state != nil {
		resumed = true
		log.Info("resuming interrupted backup", zap.Int("alreadyUploaded", len(state.UploadedFiles)))
	}

	var entries []ScanEntry
	if err := Scan(opts.SourcePaths, func(e ScanEntry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		return nil, err
	}

	type job struct {
		entry ScanEntry
	}
	included := make([]job, 0, len(entries))
	newIndex := index.New(opts.SourcePaths)
	seen := make(map[string]bool, len(entries))
	var carried []manifest.FileEntry

	for _, e := range entries {
		seen[e.Path] = true
		if !incremental {
			included = append(included, job{entry: e})
			continue
		}
		classification, needsHash := prevIndex.Classify(e.Path, e.Size, e.Modified)
		if needsHash {
			hash, herr := hashFile(e.Path)
			if herr != nil {
				return nil, herr
			}
			classification = prevIndex.Resolve(e.Path, hash)
		}
		if classification.Included() {
			included = append(included, job{entry: e})
			continue
		}
		// Unchanged or MetadataChanged: carry the previous entry forward
		// without re-uploading.
		if prev, ok := prevIndex.Files[e.Path]; ok {
			newIndex.Files[e.Path] = index.FileStat{
				Size: e.Size, Modified: e.Modified, Hash: prev.Hash,
				RemotePath: prev.RemotePath, Compressed: prev.Compressed, Encrypted: prev.Encrypted,
			}
			carried = append(carried, manifest.FileEntry{
				LocalPath: relativePath(opts.SourcePaths, e.Path), RemotePath: prev.RemotePath,
				Size: e.Size, Modified: e.Modified, Hash: prev.Hash,
				Compressed: prev.Compressed, Encrypted: prev.Encrypted,
			})
		}
	}

	if state == nil {
		state = resume.New(opts.BackupID, opts.SourcePaths, len(included))
	}

	m := manifest.New(opts.BackupID, opts.SourcePaths, opts.EncryptionVersion)
	if incremental {
		m.BaseBackupID = prevIndex.BackupID
	}
	for _, fe := range carried {
		m.AddFile(fe)
	}

	var (
		mu       sync.Mutex
		failures []FileFailure
		filesDone int
		bytesDone int64
	)
	var totalBytes int64
	for _, j := range included {
		totalBytes += j.entry.Size
	}
	reporter := NewReporter(opts.Observer)
	adaptive := NewAdaptiveConcurrency(workers)
	throttle := NewThrottle(opts.MaxBytesPerSec)

	fileCfg := FileConfig{
		BackupID: opts.BackupID, BackupRoot: opts.BackupRoot, MasterKey: opts.MasterKey,
		Suite: opts.Suite, HashAlgorithm: m.HashAlgorithm,
		CompressionLevel: opts.CompressionLevel, CompressionCustomLevel: opts.CompressionCustomLevel,
		Backend: opts.Backend, Throttle: throttle,
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			for j := range jobs {
				// A worker whose number exceeds the currently allowed
				// concurrency waits rather than processing, so the pool
				// shrinks under repeated errors without tearing down and
				// respawning goroutines; it resumes once the cooldown
				// restores the base worker count.
				for workerNum >= adaptive.Allowed() {
					select {
					case <-ctx.Done():
						return
					case <-time.After(200 * time.Millisecond):
					}
				}
				if state.IsUploaded(j.entry.Path) {
					mu.Lock()
					filesDone++
					mu.Unlock()
					continue
				}
				rel := relativePath(opts.SourcePaths, j.entry.Path)
				entry, err := ProcessFile(ctx, fileCfg, j.entry.Path, rel)
				if err != nil {
					adaptive.RecordError()
					log.Warn("file failed", zap.String("path", j.entry.Path), zap.Error(err))
					mu.Lock()
					failures = append(failures, FileFailure{Path: j.entry.Path, Err: err})
					mu.Unlock()
					continue
				}
				adaptive.RecordSuccess()

				mu.Lock()
				m.AddFile(entry)
				newIndex.Files[j.entry.Path] = index.FileStat{
					Size: entry.Size, Modified: entry.Modified, Hash: entry.Hash,
					RemotePath: entry.RemotePath, Compressed: entry.Compressed, Encrypted: entry.Encrypted,
				}
				filesDone++
				bytesDone += entry.Size
				mu.Unlock()

				if serr := state.MarkUploaded(opts.StateDir, j.entry.Path); serr != nil {
					mu.Lock()
					failures = append(failures, FileFailure{Path: j.entry.Path, Err: serr})
					mu.Unlock()
				}

				reporter.Report(Event{
					BytesUploaded: bytesDone, BytesTotal: totalBytes,
					FilesDone: filesDone, FilesTotal: len(included), CurrentFile: j.entry.Path,
				})
			}
		}(w)
	}
	for _, j := range included {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
	reporter.Flush()

	if len(failures) > 0 && opts.Strict {
		log.Error("aborting: strict mode with file failures", zap.Int("failed", len(failures)))
		return &Result{Manifest: m, Failures: failures, Resumed: resumed}, apperrors.Newf(apperrors.KindIO, "strict mode: %d file(s) failed", len(failures))
	}

	for _, prevPath := range prevIndex.RemovedSince(seen) {
		_ = prevPath // recorded by absence from newIndex; nothing else to do
	}

	if opts.SigningKey != nil {
		if err := m.Sign(opts.SigningKey, opts.SigningKeyID); err != nil {
			return nil, err
		}
		state0, err := chain.Load(opts.StateDir)
		if err != nil {
			return nil, err
		}
		if err := state0.CheckAndAdvance(opts.StateDir, m, opts.RotationAuthorization); err != nil {
			log.Error("chain advance rejected signed manifest", zap.Error(err))
			return nil, err
		}
	}

	if err := newIndex.Save(opts.StateDir, opts.BackupID); err != nil {
		return nil, err
	}
	if err := resume.Delete(opts.StateDir, opts.BackupID); err != nil {
		return nil, err
	}

	log.Info("backup complete",
		zap.Int("filesTotal", len(included)), zap.Int("filesFailed", len(failures)),
		zap.Int64("bytesUploaded", bytesDone))

	return &Result{Manifest: m, Failures: failures, Resumed: resumed}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperrors.New(apperrors.KindIO, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperrors.New(apperrors.KindIO, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func relativePath(sourcePaths []string, path string) string {
	for _, root := range sourcePaths {
		if len(path) > len(root) && path[:len(root)] == root {
			rel := path[len(root):]
			for len(rel) > 0 && (rel[0] == '/' || rel[0] == '\\') {
				rel = rel[1:]
			}
			return rel
		}
	}
	return path
}
