package service

import (
	"context"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/repository"
)

// persist writes plans first and their children after. Children of a
// plan that could not be written are skipped, never orphaned. Nothing is
// rolled back across batches; a rerun must be preceded by a wipe or
// followed by a merge.
func (s *planService) persist(ctx context.Context, plans []*domain.WeeklyPlan, run *report.Run) {
	sum := &report.PersistSummary{}
	run.Persist = sum
	log := s.opts.Logger

	failed := make(map[string]bool)
	sum.WeeklyInserted = insertBatched(ctx, log, "weekly_plans", s.opts.BatchSize, plans,
		s.repos.Weekly.Insert,
		func(p *domain.WeeklyPlan, err error) {
			failed[p.ID] = true
			run.Fail("import", p.ID, err)
		})
	sum.WeeklyFailed = len(failed)

	var (
		tasks     []*domain.WeeklyTask
		assignees []repository.Link
		companies []repository.Link
	)
	for _, p := range plans {
		if failed[p.ID] {
			sum.ChildrenSkipped += len(p.Tasks) + len(p.Assignees) + len(p.Companies)
			continue
		}
		tasks = append(tasks, p.Tasks...)
		for _, id := range p.Assignees {
			assignees = append(assignees, repository.Link{WeeklyID: p.ID, TargetID: id})
		}
		for _, id := range p.Companies {
			companies = append(companies, repository.Link{WeeklyID: p.ID, TargetID: id})
		}
	}

	sum.TasksInserted = insertBatched(ctx, log, "weekly_tasks", s.opts.BatchSize, tasks,
		s.repos.Tasks.Insert,
		func(t *domain.WeeklyTask, err error) { run.Fail("import", t.ID, err) })
	sum.AssigneesInserted = insertBatched(ctx, log, "weekly_plan_assignees", s.opts.BatchSize, assignees,
		s.repos.Assignees.Insert,
		func(l repository.Link, err error) { run.Fail("import", l.WeeklyID+"/"+l.TargetID, err) })
	sum.CompaniesInserted = insertBatched(ctx, log, "weekly_plan_companies", s.opts.BatchSize, companies,
		s.repos.Companies.Insert,
		func(l repository.Link, err error) { run.Fail("import", l.WeeklyID+"/"+l.TargetID, err) })

	log.Info("import finished",
		"weekly", sum.WeeklyInserted,
		"weekly_failed", sum.WeeklyFailed,
		"tasks", sum.TasksInserted,
		"assignees", sum.AssigneesInserted,
		"companies", sum.CompaniesInserted,
		"children_skipped", sum.ChildrenSkipped,
	)
}
