package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/retention"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Plan and apply grandfather-father-son backup retention",
}

var retentionPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which backups retention would keep or delete",
	RunE:  runners.Config().Wrap(runRetentionPlan),
}

var retentionApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Delete the backups retention planning marks for deletion",
	Long: `Runs the same plan as "retention plan", then deletes every
ciphertext object referenced only by a deleted backup, followed by its
manifest. Objects still referenced by a surviving backup are left
alone. Requires --confirm unless --dry-run is given.`,
	RunE: runners.Signed().Wrap(runRetentionApply),
}

func init() {
	f := retentionApplyCmd.Flags()
	f.Bool("confirm", false, "Actually delete (required unless --dry-run)")
	f.Bool("dry-run", false, "Report what would be deleted without deleting anything")

	retentionCmd.AddCommand(retentionPlanCmd)
	retentionCmd.AddCommand(retentionApplyCmd)
	rootCmd.AddCommand(retentionCmd)
}

func loadAllSummaries(ctx context.Context, ctxt *runner.CommandContext) ([]retention.Summary, error) {
	backend, err := ctxt.Backend()
	if err != nil {
		return nil, err
	}
	ids, err := listBackupIDs(ctx, backend)
	if err != nil {
		return nil, err
	}
	summaries := make([]retention.Summary, 0, len(ids))
	for _, id := range ids {
		m, err := loadManifest(ctx, backend, id)
		if err != nil {
			PrintWarning("skipping %s: %v", id, err)
			continue
		}
		summaries = append(summaries, retention.Summary{
			BackupID:  m.BackupID,
			Timestamp: m.Timestamp,
			Files:     m.Files,
		})
	}
	return summaries, nil
}

func policyFromConfig(ctxt *runner.CommandContext) retention.Policy {
	rp := ctxt.Config.Retention
	return retention.Policy{
		GFS: retention.GFSBuckets{
			Hourly:  rp.Hourly,
			Daily:   rp.Daily,
			Weekly:  rp.Weekly,
			Monthly: rp.Monthly,
			Yearly:  rp.Yearly,
		},
		MinKeep: rp.MinKeep,
	}
}

func printPlan(plan retention.Plan) {
	PrintHeader("Keep")
	for _, s := range plan.Keep {
		PrintInfo("  %s  (%s)", s.BackupID, s.Timestamp.Format("2006-01-02 15:04:05"))
	}
	PrintHeader("Delete")
	for _, s := range plan.Delete {
		PrintInfo("  %s  (%s)", s.BackupID, s.Timestamp.Format("2006-01-02 15:04:05"))
	}
}

func runRetentionPlan(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	opCtx := context.Background()
	summaries, err := loadAllSummaries(opCtx, ctx)
	if err != nil {
		return err
	}
	plan := retention.PlanRetention(summaries, policyFromConfig(ctx), time.Now())
	printPlan(plan)
	PrintInfo("%d to keep, %d to delete", len(plan.Keep), len(plan.Delete))
	return nil
}

func runRetentionApply(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	confirm := flags.Bool("confirm")
	dryRun := flags.Bool("dry-run")
	if err := flags.Err(); err != nil {
		return err
	}

	opCtx := context.Background()
	summaries, err := loadAllSummaries(opCtx, ctx)
	if err != nil {
		return err
	}
	plan := retention.PlanRetention(summaries, policyFromConfig(ctx), time.Now())
	printPlan(plan)

	if len(plan.Delete) == 0 {
		PrintSuccess("nothing to delete")
		return nil
	}

	backend, err := ctx.Backend()
	if err != nil {
		return err
	}

	result, err := retention.Execute(opCtx, plan, manifestPath, retention.ExecuteOptions{
		Backend: backend,
		DryRun:  dryRun,
		Confirm: confirm,
	})
	if err != nil {
		return err
	}

	cat, catErr := catalogManager(ctx)
	if catErr == nil && !dryRun {
		for _, id := range result.DeletedManifests {
			if err := cat.RemoveBackup(id); err != nil {
				PrintWarning("catalog: %v", err)
			}
		}
	}

	if dryRun {
		PrintInfo("dry run: would delete %d manifest(s), %d object(s)", len(result.DeletedManifests), len(result.DeletedObjects))
		return nil
	}
	PrintSuccess("deleted %d manifest(s), %d object(s); retained %d object(s)",
		len(result.DeletedManifests), len(result.DeletedObjects), len(result.RetainedObjects))
	return nil
}
