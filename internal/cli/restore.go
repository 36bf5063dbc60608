package cli

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/restore"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id> <target-dir>",
	Short: "Restore a backup",
	Long: `Download, decrypt, and write out every file in backup-id's manifest
under target-dir, verifying each file's content hash against what the
manifest declares. If the manifest is signed, its signature is checked
against the owner's public key before any file is written.`,
	Example: `  skylock restore backup_1 /mnt/recovered
  skylock restore backup_1 /mnt/recovered --paths etc/passwd,home/bob/notes.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runners.Config().Wrap(runRestore),
}

func init() {
	f := restoreCmd.Flags()
	f.String("passphrase", "", "Vault passphrase (falls back to SKYLOCK_PASSPHRASE, then a prompt)")
	f.StringSlice("paths", nil, "Restore only these local_path values (default: everything)")
	f.String("on-conflict", string(restore.ConflictRename), "skip, overwrite, or rename on an existing target file")
	f.Bool("strict", false, "Abort the whole restore on the first file error")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	backupID, targetDir := args[0], args[1]

	flags := runner.Flags(cmd)
	passphraseFlag := flags.String("passphrase")
	paths := flags.StringSlice("paths")
	conflict := restore.ConflictPolicy(flags.String("on-conflict"))
	strict := flags.Bool("strict")
	if err := flags.Err(); err != nil {
		return err
	}

	passphrase, err := runner.ResolvePassphrase(passphraseFlag)
	if err != nil {
		return err
	}

	backend, err := ctx.Backend()
	if err != nil {
		return err
	}

	opCtx := context.Background()
	m, err := loadManifest(opCtx, backend, backupID)
	if err != nil {
		return err
	}

	if m.KDFParams == nil {
		return cmdErrorf("backup %s has no kdf_params recorded, cannot re-derive its master key", backupID)
	}
	salt, err := hex.DecodeString(m.KDFParams.Salt)
	if err != nil {
		return fmt.Errorf("decode kdf salt: %w", err)
	}
	kdf := crypto.KDFParams{
		MemoryCostKiB: m.KDFParams.MemoryCostKiB,
		TimeCost:      m.KDFParams.TimeCost,
		Parallelism:   m.KDFParams.Parallelism,
		OutputLen:     m.KDFParams.OutputLen,
		Salt:          salt,
	}
	if err := crypto.ValidateKDFParams(kdf); err != nil {
		return err
	}
	masterKey := crypto.DeriveMasterKey(passphrase, kdf)

	result, err := restore.Run(opCtx, m, restore.Options{
		TargetDir: targetDir,
		Conflict:  conflict,
		Paths:     paths,
		MasterKey: masterKey,
		Backend:   backend,
		PublicKey: ctx.Config.PublicKey,
		Strict:    strict,
	})
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	PrintSuccess("Restored %d files (%d skipped, %d failed, %d hash mismatches)",
		result.Restored, result.Skipped, result.Failed, result.HashMismatched)
	for _, r := range result.Results {
		if r.Status != restore.StatusRestored {
			PrintInfo("  %-16s %s%s", r.Status, r.Path, errSuffix(r.Err))
		}
	}
	if result.Failed > 0 || result.HashMismatched > 0 {
		return cmdErrorf("restore completed with %d failure(s) and %d hash mismatch(es)", result.Failed, result.HashMismatched)
	}
	return nil
}

func errSuffix(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}
