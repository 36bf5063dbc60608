package cli

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/integrity"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [backup-id]",
	Short: "Check a backup's integrity against storage",
	Long: `Check that every file a backup's manifest declares still exists
on the storage backend and still matches the owner's signed
verification record. With --full, also downloads and decrypts every
file to confirm its content hash, which is slower but catches
corruption a quick existence check can't.

With no backup-id, checks the most recently created backup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runners.Config().Wrap(runVerify),
}

func init() {
	f := verifyCmd.Flags()
	f.Bool("full", false, "Download and decrypt every file to verify its content hash")
	f.String("passphrase", "", "Vault passphrase, required for --full (falls back to SKYLOCK_PASSPHRASE, then a prompt)")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	full := flags.Bool("full")
	passphraseFlag := flags.String("passphrase")
	if err := flags.Err(); err != nil {
		return err
	}

	backend, err := ctx.Backend()
	if err != nil {
		return err
	}

	opCtx := context.Background()

	backupID := ""
	if len(args) == 1 {
		backupID = args[0]
	} else {
		backupID, err = latestBackupID(opCtx, backend)
		if err != nil {
			return err
		}
	}

	m, err := loadManifest(opCtx, backend, backupID)
	if err != nil {
		return err
	}

	checker, err := integrity.NewChecker(ctx.Config.ConfigDir+"/integrity", backend)
	if err != nil {
		return err
	}

	var result *integrity.CheckResult
	if full {
		passphrase, err := runner.ResolvePassphrase(passphraseFlag)
		if err != nil {
			return err
		}
		if m.KDFParams == nil {
			return cmdErrorf("backup %s has no kdf_params recorded, cannot re-derive its master key for --full", backupID)
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
		result, err = checker.FullCheck(opCtx, m, masterKey)
		if err != nil {
			return err
		}
	} else {
		result, err = checker.QuickCheck(opCtx, m)
		if err != nil {
			return err
		}
	}

	PrintHeader(fmt.Sprintf("Verification: %s", backupID))
	PrintInfo("Checked:  %d / %d files", result.CheckedFiles, result.TotalFiles)
	PrintInfo("Missing:  %d", result.MissingFiles)
	PrintInfo("Corrupt:  %d", result.CorruptFiles)
	for _, e := range result.Errors {
		PrintInfo("  - %s", e)
	}

	if result.Passed {
		PrintSuccess("backup %s passed verification", backupID)
		return nil
	}
	return cmdErrorf("backup %s failed verification", backupID)
}
