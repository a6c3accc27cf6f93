package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexanderramin/planrollup/internal/merge"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/google/uuid"
)

type maintenanceService struct {
	store    store.Store
	repos    *repository.Repos
	logger   *slog.Logger
	observer UseCaseObserver
}

func NewMaintenanceService(s store.Store, logger *slog.Logger, observers ...UseCaseObserver) MaintenanceService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &maintenanceService{
		store:    s,
		repos:    repository.New(s),
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *maintenanceService) Merge(ctx context.Context, req MergeRequest) (run *report.Run, err error) {
	fields := map[string]any{"dry_run": req.DryRun, "quarterly": req.Quarterly}
	done := track(ctx, s.observer, "merge", fields)
	defer func() { done(err) }()

	run = report.New("merge")
	defer run.Finish()

	out, err := merge.New(s.repos, merge.Options{
		DryRun:    req.DryRun,
		Quarterly: req.Quarterly,
		Logger:    s.logger,
	}).Run(ctx)
	run.Merge = out.Summary
	run.Failures = append(run.Failures, out.Failures...)
	fields["groups"] = out.Summary.Groups
	fields["deleted"] = out.Summary.UnitsDeleted
	return run, err
}

// Wipe empties the dependent tables children first. Every row is matched
// by a key that can never equal the nil identity. Annual plans stay.
func (s *maintenanceService) Wipe(ctx context.Context) (run *report.Run, err error) {
	fields := map[string]any{}
	done := track(ctx, s.observer, "wipe", fields)
	defer func() { done(err) }()

	run = report.New("wipe")
	defer run.Finish()

	for _, name := range store.DependentTables {
		table, err := store.Lookup(name)
		if err != nil {
			return run, err
		}
		n, err := s.store.Delete(ctx, name, []store.Filter{store.Neq(table.Key[0], uuid.Nil.String())})
		if err != nil {
			return run, fmt.Errorf("wiping %s: %w", name, err)
		}
		run.AddDeleted(name, n)
		fields[name] = n
		s.logger.Info("table wiped", "table", name, "rows", n)
	}
	return run, nil
}

func (s *maintenanceService) CleanupEmpty(ctx context.Context, dryRun bool) (run *report.Run, err error) {
	fields := map[string]any{"dry_run": dryRun}
	done := track(ctx, s.observer, "cleanup", fields)
	defer func() { done(err) }()

	run = report.New("cleanup")
	defer run.Finish()

	plans, err := s.repos.Weekly.List(ctx)
	if err != nil {
		return run, err
	}
	owners, err := s.repos.Tasks.PlanIDs(ctx)
	if err != nil {
		return run, err
	}
	var empty []string
	for _, p := range plans {
		if !owners[p.ID] {
			empty = append(empty, p.ID)
		}
	}
	run.Cleanup = &report.CleanupSummary{DryRun: dryRun, Empty: len(empty)}
	fields["empty"] = len(empty)
	if dryRun {
		return run, nil
	}

	var deletable []string
	for _, id := range empty {
		if err := s.dropLinks(ctx, id, run); err != nil {
			run.Fail("cleanup", id, err)
			continue
		}
		deletable = append(deletable, id)
	}
	for _, ids := range chunk(deletable, deleteBatch) {
		n, err := s.repos.Weekly.Delete(ctx, ids)
		if err != nil {
			for _, id := range ids {
				run.Fail("cleanup", id, err)
			}
			continue
		}
		run.AddDeleted(store.TableWeeklyPlans, n)
	}
	return run, nil
}

func (s *maintenanceService) dropLinks(ctx context.Context, weeklyID string, run *report.Run) error {
	n, err := s.repos.Assignees.DeleteByWeekly(ctx, weeklyID)
	if err != nil {
		return err
	}
	run.AddDeleted(store.TableWeeklyAssignees, n)
	n, err = s.repos.Companies.DeleteByWeekly(ctx, weeklyID)
	if err != nil {
		return err
	}
	run.AddDeleted(store.TableWeeklyCompanies, n)
	return nil
}
