// Package repository maps planning entities onto store rows.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type AnnualRepo interface {
	Create(ctx context.Context, a *domain.AnnualPlan) error
	Find(ctx context.Context, departmentID string, year int) (*domain.AnnualPlan, error)
	List(ctx context.Context) ([]*domain.AnnualPlan, error)
}

type QuarterlyRepo interface {
	Create(ctx context.Context, q *domain.QuarterlyPlan) error
	ListByAnnual(ctx context.Context, annualID string) ([]*domain.QuarterlyPlan, error)
	List(ctx context.Context) ([]*domain.QuarterlyPlan, error)
	Delete(ctx context.Context, ids []string) (int, error)
}

type WeeklyRepo interface {
	Insert(ctx context.Context, plans []*domain.WeeklyPlan) error
	Get(ctx context.Context, id string) (*domain.WeeklyPlan, error)
	List(ctx context.Context) ([]*domain.WeeklyPlan, error)
	ListLinked(ctx context.Context) ([]*domain.WeeklyPlan, error)
	ListByQuarterly(ctx context.Context, quarterlyID string) ([]*domain.WeeklyPlan, error)
	Repoint(ctx context.Context, fromQuarterly, toQuarterly string) (int, error)
	SetTotals(ctx context.Context, id string, planned decimal.Decimal, status domain.PlanStatus) error
	Delete(ctx context.Context, ids []string) (int, error)
}

type TaskRepo interface {
	Insert(ctx context.Context, tasks []*domain.WeeklyTask) error
	ListByWeekly(ctx context.Context, weeklyIDs []string) ([]*domain.WeeklyTask, error)
	Count(ctx context.Context, weeklyID string) (int, error)
	PlanIDs(ctx context.Context) (map[string]bool, error)
	Reassign(ctx context.Context, fromWeekly, toWeekly string) (int, error)
}

// Link joins a weekly plan to an employee or company identity.
type Link struct {
	WeeklyID string
	TargetID string
}

type LinkRepo interface {
	Insert(ctx context.Context, links []Link) error
	ListByWeekly(ctx context.Context, weeklyIDs []string) ([]Link, error)
	DeleteByWeekly(ctx context.Context, weeklyID string) (int, error)
}

// Repos bundles every repository over one store.
type Repos struct {
	Annual    AnnualRepo
	Quarterly QuarterlyRepo
	Weekly    WeeklyRepo
	Tasks     TaskRepo
	Assignees LinkRepo
	Companies LinkRepo
}

func New(s store.Store) *Repos {
	return &Repos{
		Annual:    &annualRepo{s: s},
		Quarterly: &quarterlyRepo{s: s},
		Weekly:    &weeklyRepo{s: s},
		Tasks:     &taskRepo{s: s},
		Assignees: &linkRepo{s: s, table: store.TableWeeklyAssignees, owner: "weekly_plan_id", target: "user_id"},
		Companies: &linkRepo{s: s, table: store.TableWeeklyCompanies, owner: "weekly_id", target: "company_id"},
	}
}

type annualRepo struct {
	s store.Store
}

func (r *annualRepo) Create(ctx context.Context, a *domain.AnnualPlan) error {
	_, err := r.s.Insert(ctx, store.TableAnnualPlans, []store.Row{{
		"annual_id":     a.ID,
		"department_id": a.DepartmentID,
		"year":          a.Year,
		"goal":          a.Goal,
	}})
	if err != nil {
		return fmt.Errorf("inserting annual plan: %w", err)
	}
	return nil
}

// Find returns the first annual plan of the department for year, or
// ErrNotFound.
func (r *annualRepo) Find(ctx context.Context, departmentID string, year int) (*domain.AnnualPlan, error) {
	rows, err := r.s.Select(ctx, store.TableAnnualPlans, store.Query{
		Filters: []store.Filter{store.Eq("department_id", departmentID), store.Eq("year", year)},
		Order:   []store.Order{{Column: "annual_id"}},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("finding annual plan: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("annual plan for department %s, %d: %w", departmentID, year, ErrNotFound)
	}
	return scanAnnual(rows[0])
}

func (r *annualRepo) List(ctx context.Context) ([]*domain.AnnualPlan, error) {
	rows, err := r.s.Select(ctx, store.TableAnnualPlans, store.Query{Order: []store.Order{{Column: "annual_id"}}})
	if err != nil {
		return nil, fmt.Errorf("listing annual plans: %w", err)
	}
	out := make([]*domain.AnnualPlan, 0, len(rows))
	for _, row := range rows {
		a, err := scanAnnual(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func scanAnnual(r store.Row) (*domain.AnnualPlan, error) {
	year, err := integer(r, "year")
	if err != nil {
		return nil, fmt.Errorf("scanning annual plan: %w", err)
	}
	return &domain.AnnualPlan{
		ID:           text(r, "annual_id"),
		DepartmentID: text(r, "department_id"),
		Year:         year,
		Goal:         text(r, "goal"),
	}, nil
}

type quarterlyRepo struct {
	s store.Store
}

func (r *quarterlyRepo) Create(ctx context.Context, q *domain.QuarterlyPlan) error {
	_, err := r.s.Insert(ctx, store.TableQuarterlyPlans, []store.Row{{
		"quarterly_id":    q.ID,
		"annual_plan_id":  q.AnnualPlanID,
		"department_id":   nullableString(q.DepartmentID),
		"process_id":      q.ProcessID,
		"quarter":         q.Quarter,
		"goal":            q.Goal,
		"expected_result": q.ExpectedResult,
		"status":          string(q.Status),
	}})
	if err != nil {
		return fmt.Errorf("inserting quarterly plan: %w", err)
	}
	return nil
}

func (r *quarterlyRepo) ListByAnnual(ctx context.Context, annualID string) ([]*domain.QuarterlyPlan, error) {
	return r.list(ctx, store.Eq("annual_plan_id", annualID))
}

func (r *quarterlyRepo) List(ctx context.Context) ([]*domain.QuarterlyPlan, error) {
	return r.list(ctx)
}

func (r *quarterlyRepo) list(ctx context.Context, filters ...store.Filter) ([]*domain.QuarterlyPlan, error) {
	rows, err := r.s.Select(ctx, store.TableQuarterlyPlans, store.Query{
		Filters: filters,
		Order:   []store.Order{{Column: "quarterly_id"}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing quarterly plans: %w", err)
	}
	out := make([]*domain.QuarterlyPlan, 0, len(rows))
	for _, row := range rows {
		quarter, err := integer(row, "quarter")
		if err != nil {
			return nil, fmt.Errorf("scanning quarterly plan: %w", err)
		}
		out = append(out, &domain.QuarterlyPlan{
			ID:             text(row, "quarterly_id"),
			AnnualPlanID:   text(row, "annual_plan_id"),
			DepartmentID:   optionalText(row, "department_id"),
			ProcessID:      text(row, "process_id"),
			Quarter:        quarter,
			Goal:           text(row, "goal"),
			ExpectedResult: text(row, "expected_result"),
			Status:         domain.QuarterlyStatus(text(row, "status")),
		})
	}
	return out, nil
}

func (r *quarterlyRepo) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.s.Delete(ctx, store.TableQuarterlyPlans, []store.Filter{store.InStrings("quarterly_id", ids)})
	if err != nil {
		return 0, fmt.Errorf("deleting quarterly plans: %w", err)
	}
	return n, nil
}
