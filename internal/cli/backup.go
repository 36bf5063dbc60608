package cli

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/catalog"
	"github.com/skylock/skylock/internal/chain"
	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/compress"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/engine"
	"github.com/skylock/skylock/internal/integrity"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
)

var backupCmd = &cobra.Command{
	Use:   "backup [paths...]",
	Short: "Run a backup",
	Long: `Encrypt and upload the given paths (or the configured default
paths) as a new backup, sign the resulting manifest, record it in the
signed catalog, and store a verification record for later integrity
checks.`,
	Example: `  skylock backup ~/Documents ~/Photos
  skylock backup --incremental`,
	RunE: runners.Signed().Wrap(runBackup),
}

func init() {
	f := backupCmd.Flags()
	f.String("passphrase", "", "Vault passphrase (falls back to SKYLOCK_PASSPHRASE, then a prompt)")
	f.Bool("incremental", false, "Only include files changed since the last backup recorded in local state")
	f.StringSlice("exclude", nil, "Glob patterns to exclude (accepted but not applied: every regular file under the paths is backed up)")
	f.Int("workers", 0, "Worker count override (0 = config default)")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	passphraseFlag := flags.String("passphrase")
	incremental := flags.Bool("incremental")
	workers := flags.Int("workers")
	if err := flags.Err(); err != nil {
		return err
	}
	if workers <= 0 {
		workers = ctx.Config.Engine.WorkerCount
	}

	paths := args
	if len(paths) == 0 {
		paths = ctx.Config.BackupPaths
	}
	if len(paths) == 0 {
		return cmdErrorf("no paths given and no backup_paths configured")
	}

	passphrase, err := runner.ResolvePassphrase(passphraseFlag)
	if err != nil {
		return err
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	kdfParams := ctx.Config.KDFParams()
	kdfParams.Salt = salt
	if err := crypto.ValidateKDFParams(kdfParams); err != nil {
		return err
	}
	masterKey := crypto.DeriveMasterKey(passphrase, kdfParams)

	backend, err := ctx.Backend()
	if err != nil {
		return err
	}

	backupID := fmt.Sprintf("backup_%s", uuid.New().String())
	stateDir := ctx.Config.ConfigDir + "/state"

	opCtx := context.Background()
	result, err := engine.Run(opCtx, engine.Options{
		BackupID:          backupID,
		SourcePaths:       paths,
		Incremental:       incremental,
		Workers:           workers,
		BackupRoot:        backupRoot,
		StateDir:          stateDir,
		MasterKey:         masterKey,
		Suite:             crypto.SuiteAES256GCM,
		EncryptionVersion: manifest.EncryptionV2,
		CompressionLevel:  compress.Level(ctx.Config.Engine.CompressionLevel),
		MaxBytesPerSec:    int(ctx.Config.Engine.MaxBytesPerSec),
		Backend:           backend,
	})
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	// The manifest's kdf_params must be set before signing so restore can
	// re-derive this exact master key from the passphrase alone; engine.Run
	// doesn't know about passphrases, so the owner's signing and chain
	// advance happen here instead of inside it.
	m := result.Manifest
	m.KDFParams = &manifest.KDFParams{
		MemoryCostKiB: kdfParams.MemoryCostKiB,
		TimeCost:      kdfParams.TimeCost,
		Parallelism:   kdfParams.Parallelism,
		OutputLen:     kdfParams.OutputLen,
		Salt:          hex.EncodeToString(salt),
	}

	if ctx.Config.SigningEnabled {
		keyID := crypto.KeyID(ctx.Config.PublicKey)
		if err := m.Sign(ctx.Config.PrivateKey, keyID); err != nil {
			return fmt.Errorf("sign manifest: %w", err)
		}
		state, err := chain.Load(stateDir)
		if err != nil {
			return fmt.Errorf("load chain state: %w", err)
		}
		if err := state.CheckAndAdvance(stateDir, m, nil); err != nil {
			return fmt.Errorf("chain advance: %w", err)
		}
	}

	if err := saveManifest(opCtx, backend, m); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	if err := recordInCatalog(ctx, m); err != nil {
		PrintWarning("backup %s completed but catalog update failed: %v", backupID, err)
	}

	if err := recordVerification(ctx, m); err != nil {
		PrintWarning("backup %s completed but verification record failed: %v", backupID, err)
	}

	PrintSuccess("Backup %s complete: %d files, %d bytes", backupID, m.TotalFiles, m.TotalSize)
	if len(result.Failures) > 0 {
		PrintWarning("%d files failed and were skipped", len(result.Failures))
		for _, f := range result.Failures {
			PrintInfo("  %s: %v", f.Path, f.Err)
		}
	}
	return nil
}

func catalogManager(ctx *runner.CommandContext) (*catalog.Manager, error) {
	keyID := crypto.KeyID(ctx.Config.PublicKey)
	return catalog.NewManager(ctx.Config.ConfigDir+"/catalog", keyID, ctx.Config.PrivateKey, ctx.Config.PublicKey)
}

func recordInCatalog(ctx *runner.CommandContext, m *manifest.BackupManifest) error {
	cat, err := catalogManager(ctx)
	if err != nil {
		return err
	}
	if cat.Get() == nil {
		if err := cat.Initialize(); err != nil {
			return err
		}
	}
	return cat.AddBackup(catalog.Entry{
		BackupID:    m.BackupID,
		CreatedAt:   m.Timestamp,
		SourcePaths: m.SourcePaths,
		FileCount:   m.TotalFiles,
		TotalBytes:  m.TotalSize,
	})
}

func recordVerification(ctx *runner.CommandContext, m *manifest.BackupManifest) error {
	var noBackend storage.Backend
	checker, err := integrity.NewChecker(ctx.Config.ConfigDir+"/integrity", noBackend)
	if err != nil {
		return err
	}
	keyID := crypto.KeyID(ctx.Config.PublicKey)
	record, err := integrity.CreateVerificationRecord(m, keyID)
	if err != nil {
		return err
	}
	if err := checker.Sign(record, ctx.Config.PrivateKey); err != nil {
		return err
	}
	return checker.AddVerificationRecord(record, ctx.Config.PublicKey)
}
