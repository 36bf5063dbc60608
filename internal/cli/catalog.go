package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the signed backup catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every backup recorded in the signed catalog",
	RunE:  runners.Config().Wrap(runCatalogList),
}

var catalogVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the catalog's signature and compare it against storage",
	Long: `Verify the catalog's own merkle root and owner signature, then
compare its entries against what's actually present on the storage
backend: a backup recorded in the catalog but missing from storage
means a host deleted it without the owner's knowledge.`,
	RunE: runners.Config().Wrap(runCatalogVerify),
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogVerifyCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogList(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	cat, err := catalogManager(ctx)
	if err != nil {
		return err
	}
	c := cat.Get()
	if c == nil || len(c.Entries) == 0 {
		PrintInfo("catalog is empty")
		return nil
	}
	for _, e := range c.Entries {
		PrintInfo("%s  %s  %d files  %d bytes",
			e.BackupID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.FileCount, e.TotalBytes)
	}
	return nil
}

func runCatalogVerify(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	cat, err := catalogManager(ctx)
	if err != nil {
		return err
	}

	backend, err := ctx.Backend()
	if err != nil {
		return err
	}

	report, err := cat.CheckIntegrity(func() ([]string, error) {
		return listBackupIDs(context.Background(), backend)
	})
	if err != nil {
		return err
	}

	PrintHeader("Catalog integrity")
	PrintInfo("In catalog: %d", report.TotalInCatalog)
	PrintInfo("On storage: %d", report.TotalOnStorage)
	for _, id := range report.Missing {
		PrintWarning("missing from storage: %s", id)
	}
	for _, id := range report.Unexpected {
		PrintWarning("present on storage but never catalogued: %s", id)
	}
	for _, e := range report.Errors {
		PrintWarning("%s", e)
	}

	if report.Verified {
		PrintSuccess("catalog matches storage")
		return nil
	}
	return cmdErrorf("catalog integrity check failed")
}
