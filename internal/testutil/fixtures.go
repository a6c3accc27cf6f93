package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Date parses a YYYY-MM-DD literal and panics on a typo.
func Date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func Hours(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NewTestAnnual(departmentID string, year int) *domain.AnnualPlan {
	return &domain.AnnualPlan{
		ID:           uuid.NewString(),
		DepartmentID: departmentID,
		Year:         year,
		Goal:         "test goal",
	}
}

func NewTestQuarterly(annualID, processID string, quarter int) *domain.QuarterlyPlan {
	return &domain.QuarterlyPlan{
		ID:           uuid.NewString(),
		AnnualPlanID: annualID,
		ProcessID:    processID,
		Quarter:      quarter,
		Goal:         "test quarter",
		Status:       domain.QuarterlyApproved,
	}
}

// Weekly options
type WeeklyOption func(*domain.WeeklyPlan)

func WithQuarterly(id string) WeeklyOption {
	return func(w *domain.WeeklyPlan) {
		w.QuarterlyID = &id
	}
}

func WithPlanned(h string) WeeklyOption {
	return func(w *domain.WeeklyPlan) {
		w.PlannedHours = Hours(h)
	}
}

func WithAssignees(ids ...string) WeeklyOption {
	return func(w *domain.WeeklyPlan) {
		for _, id := range ids {
			w.AddAssignee(id)
		}
	}
}

func WithCompanies(ids ...string) WeeklyOption {
	return func(w *domain.WeeklyPlan) {
		for _, id := range ids {
			w.AddCompany(id)
		}
	}
}

// WithTaskHours adds one task per value, none of them completed.
func WithTaskHours(hours ...string) WeeklyOption {
	return func(w *domain.WeeklyPlan) {
		for _, h := range hours {
			w.AddTask(NewTestTask(h))
		}
	}
}

func NewTestWeekly(weekStart string, opts ...WeeklyOption) *domain.WeeklyPlan {
	w := &domain.WeeklyPlan{
		ID:             uuid.NewString(),
		WeekStart:      Date(weekStart),
		ExpectedResult: "test result",
		PlannedHours:   decimal.Zero,
		Status:         domain.PlanActive,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Task options
type TaskOption func(*domain.WeeklyTask)

func WithCompletedAt(d string) TaskOption {
	return func(t *domain.WeeklyTask) {
		day := Date(d)
		t.CompletedAt = &day
	}
}

func WithEmployee(id string) TaskOption {
	return func(t *domain.WeeklyTask) {
		t.EmployeeID = &id
	}
}

func NewTestTask(hours string, opts ...TaskOption) *domain.WeeklyTask {
	t := &domain.WeeklyTask{
		ID:          uuid.NewString(),
		Description: "test task",
		ActualHours: Hours(hours),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SeedWeekly persists w with its tasks and links.
func SeedWeekly(t *testing.T, repos *repository.Repos, w *domain.WeeklyPlan) {
	t.Helper()
	ctx := context.Background()
	if err := repos.Weekly.Insert(ctx, []*domain.WeeklyPlan{w}); err != nil {
		t.Fatalf("seeding weekly plan: %v", err)
	}
	if err := repos.Tasks.Insert(ctx, w.Tasks); err != nil {
		t.Fatalf("seeding tasks: %v", err)
	}
	links := func(ids []string) []repository.Link {
		out := make([]repository.Link, len(ids))
		for i, id := range ids {
			out[i] = repository.Link{WeeklyID: w.ID, TargetID: id}
		}
		return out
	}
	if err := repos.Assignees.Insert(ctx, links(w.Assignees)); err != nil {
		t.Fatalf("seeding assignees: %v", err)
	}
	if err := repos.Companies.Insert(ctx, links(w.Companies)); err != nil {
		t.Fatalf("seeding companies: %v", err)
	}
}
