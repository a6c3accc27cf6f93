package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/shopspring/decimal"
)

type weeklyRepo struct {
	s store.Store
}

var weeklyOrder = []store.Order{{Column: "weekly_id"}}

// Insert writes plan rows only. Tasks and links go through their own
// repositories.
func (r *weeklyRepo) Insert(ctx context.Context, plans []*domain.WeeklyPlan) error {
	if len(plans) == 0 {
		return nil
	}
	rows := make([]store.Row, len(plans))
	for i, p := range plans {
		rows[i] = store.Row{
			"weekly_id":       p.ID,
			"quarterly_id":    nullableString(p.QuarterlyID),
			"weekly_date":     dateValue(p.WeekStart),
			"expected_result": p.ExpectedResult,
			"planned_hours":   numberValue(p.PlannedHours),
			"status":          string(p.Status),
		}
	}
	if _, err := r.s.Insert(ctx, store.TableWeeklyPlans, rows); err != nil {
		return fmt.Errorf("inserting weekly plans: %w", err)
	}
	return nil
}

func (r *weeklyRepo) Get(ctx context.Context, id string) (*domain.WeeklyPlan, error) {
	plans, err := r.list(ctx, store.Eq("weekly_id", id))
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("weekly plan %s: %w", id, ErrNotFound)
	}
	return plans[0], nil
}

func (r *weeklyRepo) List(ctx context.Context) ([]*domain.WeeklyPlan, error) {
	return r.list(ctx)
}

// ListLinked returns plans that have a quarterly parent, by identity.
func (r *weeklyRepo) ListLinked(ctx context.Context) ([]*domain.WeeklyPlan, error) {
	return r.list(ctx, store.NotNull("quarterly_id"))
}

func (r *weeklyRepo) ListByQuarterly(ctx context.Context, quarterlyID string) ([]*domain.WeeklyPlan, error) {
	return r.list(ctx, store.Eq("quarterly_id", quarterlyID))
}

func (r *weeklyRepo) list(ctx context.Context, filters ...store.Filter) ([]*domain.WeeklyPlan, error) {
	rows, err := r.s.Select(ctx, store.TableWeeklyPlans, store.Query{Filters: filters, Order: weeklyOrder})
	if err != nil {
		return nil, fmt.Errorf("listing weekly plans: %w", err)
	}
	out := make([]*domain.WeeklyPlan, 0, len(rows))
	for _, row := range rows {
		p, err := scanWeekly(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func scanWeekly(r store.Row) (*domain.WeeklyPlan, error) {
	start, err := date(r, "weekly_date")
	if err != nil {
		return nil, fmt.Errorf("scanning weekly plan: %w", err)
	}
	planned, err := number(r, "planned_hours")
	if err != nil {
		return nil, fmt.Errorf("scanning weekly plan: %w", err)
	}
	return &domain.WeeklyPlan{
		ID:             text(r, "weekly_id"),
		QuarterlyID:    optionalText(r, "quarterly_id"),
		WeekStart:      start,
		ExpectedResult: text(r, "expected_result"),
		PlannedHours:   planned,
		Status:         domain.PlanStatus(text(r, "status")),
	}, nil
}

// Repoint moves every weekly plan of one quarterly parent to another.
func (r *weeklyRepo) Repoint(ctx context.Context, fromQuarterly, toQuarterly string) (int, error) {
	n, err := r.s.Update(ctx, store.TableWeeklyPlans,
		[]store.Filter{store.Eq("quarterly_id", fromQuarterly)},
		store.Row{"quarterly_id": toQuarterly})
	if err != nil {
		return 0, fmt.Errorf("repointing weekly plans from %s: %w", fromQuarterly, err)
	}
	return n, nil
}

func (r *weeklyRepo) SetTotals(ctx context.Context, id string, planned decimal.Decimal, status domain.PlanStatus) error {
	_, err := r.s.Update(ctx, store.TableWeeklyPlans,
		[]store.Filter{store.Eq("weekly_id", id)},
		store.Row{"planned_hours": numberValue(planned), "status": string(status)})
	if err != nil {
		return fmt.Errorf("updating weekly plan %s: %w", id, err)
	}
	return nil
}

func (r *weeklyRepo) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.s.Delete(ctx, store.TableWeeklyPlans, []store.Filter{store.InStrings("weekly_id", ids)})
	if err != nil {
		return 0, fmt.Errorf("deleting weekly plans: %w", err)
	}
	return n, nil
}

type taskRepo struct {
	s store.Store
}

func (r *taskRepo) Insert(ctx context.Context, tasks []*domain.WeeklyTask) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]store.Row, len(tasks))
	for i, t := range tasks {
		rows[i] = store.Row{
			"weekly_tasks_id": t.ID,
			"weekly_plan_id":  t.WeeklyPlanID,
			"user_id":         nullableString(t.EmployeeID),
			"description":     t.Description,
			"spent_hours":     numberValue(t.ActualHours),
			"completed_at":    nullableDate(t.CompletedAt),
			"attachment_url":  nullableString(t.AttachmentURL),
		}
	}
	if _, err := r.s.Insert(ctx, store.TableWeeklyTasks, rows); err != nil {
		return fmt.Errorf("inserting weekly tasks: %w", err)
	}
	return nil
}

func (r *taskRepo) ListByWeekly(ctx context.Context, weeklyIDs []string) ([]*domain.WeeklyTask, error) {
	if len(weeklyIDs) == 0 {
		return nil, nil
	}
	rows, err := r.s.Select(ctx, store.TableWeeklyTasks, store.Query{
		Filters: []store.Filter{store.InStrings("weekly_plan_id", weeklyIDs)},
		Order:   []store.Order{{Column: "weekly_tasks_id"}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing weekly tasks: %w", err)
	}
	out := make([]*domain.WeeklyTask, 0, len(rows))
	for _, row := range rows {
		hours, err := number(row, "spent_hours")
		if err != nil {
			return nil, fmt.Errorf("scanning weekly task: %w", err)
		}
		done, err := optionalDate(row, "completed_at")
		if err != nil {
			return nil, fmt.Errorf("scanning weekly task: %w", err)
		}
		out = append(out, &domain.WeeklyTask{
			ID:            text(row, "weekly_tasks_id"),
			WeeklyPlanID:  text(row, "weekly_plan_id"),
			EmployeeID:    optionalText(row, "user_id"),
			Description:   text(row, "description"),
			ActualHours:   hours,
			CompletedAt:   done,
			AttachmentURL: optionalText(row, "attachment_url"),
		})
	}
	return out, nil
}

func (r *taskRepo) Count(ctx context.Context, weeklyID string) (int, error) {
	rows, err := r.s.Select(ctx, store.TableWeeklyTasks, store.Query{
		Columns: []string{"weekly_tasks_id"},
		Filters: []store.Filter{store.Eq("weekly_plan_id", weeklyID)},
	})
	if err != nil {
		return 0, fmt.Errorf("counting tasks of %s: %w", weeklyID, err)
	}
	return len(rows), nil
}

// PlanIDs returns the set of weekly plans that own at least one task.
func (r *taskRepo) PlanIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.s.Select(ctx, store.TableWeeklyTasks, store.Query{Columns: []string{"weekly_plan_id"}})
	if err != nil {
		return nil, fmt.Errorf("listing task owners: %w", err)
	}
	ids := make(map[string]bool)
	for _, row := range rows {
		ids[text(row, "weekly_plan_id")] = true
	}
	return ids, nil
}

// Reassign points every task of one weekly plan at another in a single
// patch.
func (r *taskRepo) Reassign(ctx context.Context, fromWeekly, toWeekly string) (int, error) {
	n, err := r.s.Update(ctx, store.TableWeeklyTasks,
		[]store.Filter{store.Eq("weekly_plan_id", fromWeekly)},
		store.Row{"weekly_plan_id": toWeekly})
	if err != nil {
		return 0, fmt.Errorf("reassigning tasks of %s: %w", fromWeekly, err)
	}
	return n, nil
}

type linkRepo struct {
	s      store.Store
	table  string
	owner  string
	target string
}

func (r *linkRepo) Insert(ctx context.Context, links []Link) error {
	if len(links) == 0 {
		return nil
	}
	rows := make([]store.Row, len(links))
	for i, l := range links {
		rows[i] = store.Row{r.owner: l.WeeklyID, r.target: l.TargetID}
	}
	if _, err := r.s.Insert(ctx, r.table, rows); err != nil {
		return fmt.Errorf("inserting %s: %w", r.table, err)
	}
	return nil
}

func (r *linkRepo) ListByWeekly(ctx context.Context, weeklyIDs []string) ([]Link, error) {
	if len(weeklyIDs) == 0 {
		return nil, nil
	}
	rows, err := r.s.Select(ctx, r.table, store.Query{
		Filters: []store.Filter{store.InStrings(r.owner, weeklyIDs)},
		Order:   []store.Order{{Column: r.owner}, {Column: r.target}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.table, err)
	}
	out := make([]Link, len(rows))
	for i, row := range rows {
		out[i] = Link{WeeklyID: text(row, r.owner), TargetID: text(row, r.target)}
	}
	return out, nil
}

func (r *linkRepo) DeleteByWeekly(ctx context.Context, weeklyID string) (int, error) {
	n, err := r.s.Delete(ctx, r.table, []store.Filter{store.Eq(r.owner, weeklyID)})
	if err != nil {
		return 0, fmt.Errorf("deleting %s of %s: %w", r.table, weeklyID, err)
	}
	return n, nil
}
