// Package retention plans and executes grandfather-father-son (GFS)
// backup retention: compute which manifests survive under a combined
// policy, then delete the rest in a confirmation-guarded second phase.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/skylock/skylock/internal/logging"
	"github.com/skylock/skylock/internal/manifest"
	"github.com/skylock/skylock/internal/storage"
	"go.uber.org/zap"
)

// GFSBuckets sets how many of the most recent backups to keep in each
// grandfather-father-son bucket. A zero count disables that bucket.
type GFSBuckets struct {
	Hourly  int
	Daily   int
	Weekly  int
	Monthly int
	Yearly  int
}

// Policy combines retention rules. A backup is kept if ANY rule keeps
// it (union of keep-sets), subject to the MinKeep floor.
type Policy struct {
	KeepLast int
	KeepDays int
	GFS      GFSBuckets
	// MinKeep is the hard floor below which the planner refuses to
	// delete regardless of what the other rules decide. Defaults to 3
	// when zero.
	MinKeep int
}

func (p Policy) minKeep() int {
	if p.MinKeep <= 0 {
		return 3
	}
	return p.MinKeep
}

// Summary describes one manifest under consideration, enough to plan
// and later act on deletion without re-parsing the full manifest.
type Summary struct {
	BackupID  string
	Timestamp time.Time
	Files     []manifest.FileEntry
}

// Plan is the result of Phase 1 (compute the keep-set). It never
// touches storage.
type Plan struct {
	Keep   []Summary
	Delete []Summary
}

// PlanRetention computes which backups in all (ordered newest-first by
// caller or not — PlanRetention sorts them itself) survive under policy.
func PlanRetention(all []Summary, policy Policy, now time.Time) Plan {
	sorted := make([]Summary, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	keep := make(map[string]bool, len(sorted))

	if policy.KeepLast > 0 {
		for i := 0; i < policy.KeepLast && i < len(sorted); i++ {
			keep[sorted[i].BackupID] = true
		}
	}

	if policy.KeepDays > 0 {
		cutoff := now.AddDate(0, 0, -policy.KeepDays)
		for _, s := range sorted {
			if s.Timestamp.After(cutoff) {
				keep[s.BackupID] = true
			}
		}
	}

	for id := range gfsKeepSet(sorted, policy.GFS) {
		keep[id] = true
	}

	// If nothing else would keep anything (every rule left unset), every
	// backup is kept rather than deleting everything.
	if policy.KeepLast == 0 && policy.KeepDays == 0 && policy.GFS == (GFSBuckets{}) {
		for i := 0; i < len(sorted); i++ {
			keep[sorted[i].BackupID] = true
		}
	}

	plan := Plan{}
	for _, s := range sorted {
		if keep[s.BackupID] {
			plan.Keep = append(plan.Keep, s)
		} else {
			plan.Delete = append(plan.Delete, s)
		}
	}

	enforceMinKeep(&plan, policy.minKeep())
	return plan
}

// enforceMinKeep moves the newest currently-marked-for-deletion backups
// back into Keep until len(Keep) reaches floor, or there is nothing left
// to move.
func enforceMinKeep(plan *Plan, floor int) {
	for len(plan.Keep) < floor && len(plan.Delete) > 0 {
		// plan.Delete is already newest-first since it was built from
		// the sorted input, so the front of the slice is the best
		// candidate to save.
		plan.Keep = append(plan.Keep, plan.Delete[0])
		plan.Delete = plan.Delete[1:]
	}
}

// gfsKeepSet buckets backups by UTC hour/day/ISO-week/month/year and
// keeps the newest backup_id in each of the newest N buckets per level.
func gfsKeepSet(sorted []Summary, buckets GFSBuckets) map[string]bool {
	keep := make(map[string]bool)
	apply := func(count int, keyFn func(time.Time) string) {
		if count <= 0 {
			return
		}
		seen := make(map[string]bool)
		order := make([]string, 0)
		newest := make(map[string]Summary)
		for _, s := range sorted {
			key := keyFn(s.Timestamp.UTC())
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
				newest[key] = s
			}
		}
		for i := 0; i < count && i < len(order); i++ {
			keep[newest[order[i]].BackupID] = true
		}
	}

	apply(buckets.Hourly, func(t time.Time) string {
		return t.Format("2006-01-02T15")
	})
	apply(buckets.Daily, func(t time.Time) string {
		return t.Format("2006-01-02")
	})
	apply(buckets.Weekly, func(t time.Time) string {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	})
	apply(buckets.Monthly, func(t time.Time) string {
		return t.Format("2006-01")
	})
	apply(buckets.Yearly, func(t time.Time) string {
		return t.Format("2006")
	})
	return keep
}

// ExecuteOptions configures Phase 2.
type ExecuteOptions struct {
	Backend storage.Backend
	DryRun  bool
	Confirm bool // must be true unless DryRun, guards against accidental deletion
	// Logger receives one line per deleted object/manifest and a summary.
	// Nil falls back to logging.L() via logging.Or.
	Logger *zap.Logger
}

// ExecuteResult reports what Phase 2 did (or, in dry-run, would do).
type ExecuteResult struct {
	DeletedManifests   []string
	DeletedObjects     []string
	RetainedObjects    []string // referenced by a surviving manifest, left alone
	DryRun             bool
}

// Execute runs Phase 2: delete ciphertext objects referenced exclusively
// by manifests in plan.Delete, then delete those manifests themselves.
// Objects still referenced by any manifest in plan.Keep are never
// deleted, even if they also appear in a deleted manifest.
func Execute(ctx context.Context, plan Plan, manifestRemotePath func(backupID string) string, opts ExecuteOptions) (*ExecuteResult, error) {
	log := logging.Or(opts.Logger)

	if !opts.DryRun && !opts.Confirm {
		return nil, apperrors.Newf(apperrors.KindConflict, "retention: deletion requires Confirm or DryRun")
	}

	retained := make(map[string]bool)
	for _, s := range plan.Keep {
		for _, f := range s.Files {
			retained[f.RemotePath] = true
		}
	}

	result := &ExecuteResult{DryRun: opts.DryRun}
	toDeleteObjects := make(map[string]bool)
	for _, s := range plan.Delete {
		for _, f := range s.Files {
			if !retained[f.RemotePath] {
				toDeleteObjects[f.RemotePath] = true
			}
		}
	}

	for path := range toDeleteObjects {
		result.DeletedObjects = append(result.DeletedObjects, path)
		if !opts.DryRun {
			if err := opts.Backend.Delete(ctx, path); err != nil {
				log.Error("failed to delete object", zap.String("path", path), zap.Error(err))
				return result, apperrors.New(apperrors.KindIO, err)
			}
			log.Debug("deleted object", zap.String("path", path))
		}
	}
	for path := range retained {
		result.RetainedObjects = append(result.RetainedObjects, path)
	}

	for _, s := range plan.Delete {
		result.DeletedManifests = append(result.DeletedManifests, s.BackupID)
		if !opts.DryRun {
			if err := opts.Backend.Delete(ctx, manifestRemotePath(s.BackupID)); err != nil {
				log.Error("failed to delete manifest", zap.String("backupId", s.BackupID), zap.Error(err))
				return result, apperrors.New(apperrors.KindIO, err)
			}
			log.Debug("deleted manifest", zap.String("backupId", s.BackupID))
		}
	}

	sort.Strings(result.DeletedObjects)
	sort.Strings(result.RetainedObjects)
	sort.Strings(result.DeletedManifests)

	if opts.DryRun {
		log.Info("retention dry run", zap.Int("wouldDeleteManifests", len(result.DeletedManifests)), zap.Int("wouldDeleteObjects", len(result.DeletedObjects)))
	} else {
		log.Info("retention applied", zap.Int("deletedManifests", len(result.DeletedManifests)), zap.Int("deletedObjects", len(result.DeletedObjects)))
	}
	return result, nil
}
