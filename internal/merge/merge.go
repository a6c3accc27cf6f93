// Package merge collapses duplicate plans left behind by repeated imports.
// Weekly plans collide on (quarterly parent, week start); quarterly plans
// collide on (annual plan, process, quarter).
package merge

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/repository"
)

type Options struct {
	// DryRun reports duplicate groups without writing anything.
	DryRun bool
	// Quarterly collapses duplicate quarterly plans before weekly plans
	// are merged.
	Quarterly bool
	Logger    *slog.Logger
}

type Merger struct {
	repos *repository.Repos
	opts  Options
}

func New(repos *repository.Repos, opts Options) *Merger {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Merger{repos: repos, opts: opts}
}

// Outcome is the result of one merge pass. Failures name units that were
// kept because a step on them failed.
type Outcome struct {
	Summary  *report.MergeSummary
	Failures []report.Failure
}

func (o *Outcome) fail(stage, subject string, err error) {
	o.Failures = append(o.Failures, report.Failure{Stage: stage, Subject: subject, Err: err.Error()})
}

// Run merges duplicates. The returned error is reserved for failures that
// stop the whole pass, such as not being able to list plans.
func (m *Merger) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Summary: &report.MergeSummary{DryRun: m.opts.DryRun}}
	if m.opts.Quarterly {
		if err := m.collapseQuarterly(ctx, out); err != nil {
			return out, err
		}
	}
	if err := m.mergeWeekly(ctx, out); err != nil {
		return out, err
	}
	m.opts.Logger.Info("merge finished",
		"dry_run", m.opts.DryRun,
		"groups", out.Summary.Groups,
		"merged", out.Summary.Merged,
		"deleted", out.Summary.UnitsDeleted,
		"mismatches", len(out.Summary.Mismatches),
	)
	return out, nil
}

type weeklyKey struct {
	quarterlyID string
	weekStart   string
}

// groupWeekly returns duplicate groups in listing order. The first plan
// of each group is its survivor.
func groupWeekly(plans []*domain.WeeklyPlan) [][]*domain.WeeklyPlan {
	var order []weeklyKey
	groups := make(map[weeklyKey][]*domain.WeeklyPlan)
	for _, p := range plans {
		if p.QuarterlyID == nil {
			continue
		}
		k := weeklyKey{quarterlyID: *p.QuarterlyID, weekStart: p.WeekStart.Format(domain.DateLayout)}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}
	var dups [][]*domain.WeeklyPlan
	for _, k := range order {
		if len(groups[k]) > 1 {
			dups = append(dups, groups[k])
		}
	}
	return dups
}

func (m *Merger) mergeWeekly(ctx context.Context, out *Outcome) error {
	plans, err := m.repos.Weekly.ListLinked(ctx)
	if err != nil {
		return fmt.Errorf("listing weekly plans: %w", err)
	}
	for _, group := range groupWeekly(plans) {
		out.Summary.Groups++
		if m.opts.DryRun {
			m.opts.Logger.Info("duplicate weekly group",
				"survivor", group[0].ID,
				"quarterly_id", *group[0].QuarterlyID,
				"week", group[0].WeekStart.Format(domain.DateLayout),
				"size", len(group))
			continue
		}
		m.mergeGroup(ctx, group, out)
	}
	return nil
}

// mergeGroup moves every child of the non-survivors onto the survivor,
// checks that actual hours are conserved, and only then deletes the
// emptied sources.
func (m *Merger) mergeGroup(ctx context.Context, group []*domain.WeeklyPlan, out *Outcome) {
	survivor := group[0]
	ids := planIDs(group)

	before, err := m.repos.Tasks.ListByWeekly(ctx, ids)
	if err != nil {
		out.fail("merge", survivor.ID, err)
		out.Summary.Kept = append(out.Summary.Kept, ids[1:]...)
		return
	}
	totalBefore := domain.SumActual(before)

	var moved, kept []string
	for _, src := range group[1:] {
		n, err := m.moveChildren(ctx, src.ID, survivor.ID)
		if err != nil {
			out.fail("merge", src.ID, err)
			kept = append(kept, src.ID)
			continue
		}
		out.Summary.TasksMoved += n
		moved = append(moved, src.ID)
	}

	// Kept sources still hold their own tasks and count toward the total.
	after, err := m.repos.Tasks.ListByWeekly(ctx, append([]string{survivor.ID}, kept...))
	if err != nil {
		out.fail("merge", survivor.ID, err)
		out.Summary.Kept = append(out.Summary.Kept, ids[1:]...)
		return
	}
	if totalAfter := domain.SumActual(after); !totalAfter.Equal(totalBefore) {
		out.Summary.Mismatches = append(out.Summary.Mismatches, report.Mismatch{
			SurvivorID: survivor.ID,
			Before:     totalBefore,
			After:      totalAfter,
		})
		out.Summary.Kept = append(out.Summary.Kept, ids[1:]...)
		m.opts.Logger.Warn("hour totals changed during merge, nothing deleted",
			"survivor", survivor.ID, "before", totalBefore.String(), "after", totalAfter.String())
		return
	}

	var own []*domain.WeeklyTask
	for _, t := range after {
		if t.WeeklyPlanID == survivor.ID {
			own = append(own, t)
		}
	}
	if err := m.repos.Weekly.SetTotals(ctx, survivor.ID, domain.SumActual(own), domain.DeriveStatus(own)); err != nil {
		out.fail("merge", survivor.ID, err)
	}

	n, err := m.repos.Weekly.Delete(ctx, moved)
	if err != nil {
		out.fail("merge", survivor.ID, err)
		kept = append(kept, moved...)
	}
	out.Summary.UnitsDeleted += n
	out.Summary.Kept = append(out.Summary.Kept, kept...)
	out.Summary.Merged++
}

// moveChildren reassigns tasks in one patch, confirms the source is
// empty, then carries over assignee and company links the survivor does
// not have yet.
func (m *Merger) moveChildren(ctx context.Context, srcID, dstID string) (int, error) {
	n, err := m.repos.Tasks.Reassign(ctx, srcID, dstID)
	if err != nil {
		return 0, err
	}
	left, err := m.repos.Tasks.Count(ctx, srcID)
	if err != nil {
		return n, err
	}
	if left > 0 {
		return n, fmt.Errorf("%d tasks still on %s after reassignment", left, srcID)
	}
	if err := moveLinks(ctx, m.repos.Assignees, srcID, dstID); err != nil {
		return n, err
	}
	if err := moveLinks(ctx, m.repos.Companies, srcID, dstID); err != nil {
		return n, err
	}
	return n, nil
}

func moveLinks(ctx context.Context, links repository.LinkRepo, srcID, dstID string) error {
	existing, err := links.ListByWeekly(ctx, []string{srcID, dstID})
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for _, l := range existing {
		if l.WeeklyID == dstID {
			have[l.TargetID] = true
		}
	}
	var add []repository.Link
	for _, l := range existing {
		if l.WeeklyID == srcID && !have[l.TargetID] {
			have[l.TargetID] = true
			add = append(add, repository.Link{WeeklyID: dstID, TargetID: l.TargetID})
		}
	}
	if err := links.Insert(ctx, add); err != nil {
		return err
	}
	_, err = links.DeleteByWeekly(ctx, srcID)
	return err
}

func planIDs(plans []*domain.WeeklyPlan) []string {
	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	return ids
}
