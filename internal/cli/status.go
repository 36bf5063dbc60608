package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/resume"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault configuration and catalog summary",
	Long: `Print the owner's key ID, storage configuration, and a summary
of the signed backup catalog: how many backups it knows about and
whether its own signature still checks out.`,
	RunE: runners.Config().Wrap(runStatus),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	c := ctx.Config
	keyID := crypto.KeyID(c.PublicKey)

	PrintHeader("Vault")
	PrintInfo("Name:        %s", c.Name)
	PrintInfo("Key ID:      %s", keyID)
	PrintInfo("KDF profile: %s", c.KDFProfile)
	PrintInfo("Signing:     %v", c.SigningEnabled)
	PrintInfo("Config dir:  %s", c.ConfigDir)

	PrintHeader("Storage")
	PrintInfo("Backend: %s", c.Storage.Kind)
	switch c.Storage.Kind {
	case "local":
		PrintInfo("Path:    %s", c.Storage.LocalPath)
	case "http":
		PrintInfo("Endpoint: %s", c.Storage.HTTPEndpoint)
	}

	cat, err := catalogManager(ctx)
	if err != nil {
		PrintWarning("could not open catalog: %v", err)
		return nil
	}
	entries := cat.Get()

	PrintHeader("Catalog")
	if entries == nil {
		PrintInfo("(not initialized)")
		return nil
	}
	PrintInfo("Entries:     %d", len(entries.Entries))
	PrintInfo("Last update: %s", entries.UpdatedAt.Format("2006-01-02 15:04:05"))
	if err := cat.Verify(); err != nil {
		PrintWarning("catalog signature check failed: %v", err)
	} else {
		PrintSuccess("catalog signature verified")
	}

	backend, err := ctx.Backend()
	if err != nil {
		PrintWarning("could not reach storage: %v", err)
		return nil
	}
	ids, err := listBackupIDs(context.Background(), backend)
	if err != nil {
		PrintWarning("could not list backups on storage: %v", err)
		return nil
	}
	PrintInfo("On storage:  %d backup(s)", len(ids))

	reportResumeState(ctx.Config.ConfigDir + "/state")
	return nil
}

// reportResumeState prints whether any interrupted backup is waiting on
// --resume, and whether it's actively running right now (lock held by
// another process) rather than just sitting idle.
func reportResumeState(stateDir string) {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "resume_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		backupID := strings.TrimSuffix(strings.TrimPrefix(name, "resume_"), ".json")
		s, err := resume.Load(stateDir, backupID)
		if err != nil {
			continue
		}
		inProgress, err := s.InProgress(stateDir)
		if err != nil {
			continue
		}
		PrintHeader("Resume")
		if inProgress {
			PrintInfo("%s: backup running now (%d/%d files)", backupID, len(s.UploadedFiles), s.TotalFiles)
		} else {
			PrintInfo("%s: interrupted, resumable with --resume (%d/%d files)", backupID, len(s.UploadedFiles), s.TotalFiles)
		}
	}
}
