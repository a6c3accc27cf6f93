package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnnualPlan is owned by a department for one calendar year. The engine
// looks these up but never creates them.
type AnnualPlan struct {
	ID           string
	DepartmentID string
	Year         int
	Goal         string
}

type QuarterlyPlan struct {
	ID             string
	AnnualPlanID   string
	DepartmentID   *string
	ProcessID      string
	Quarter        int
	Goal           string
	ExpectedResult string
	Status         QuarterlyStatus
}

// WeeklyPlan is one aggregated unit of work for a week. PlannedHours is
// the sum over distinct employees of each employee's maximum single
// planned-hours value, never the plain row sum.
type WeeklyPlan struct {
	ID             string
	QuarterlyID    *string
	WeekStart      time.Time
	ExpectedResult string
	PlannedHours   decimal.Decimal
	Status         PlanStatus
	Assignees      []string
	Companies      []string
	Tasks          []*WeeklyTask
}

type WeeklyTask struct {
	ID            string
	WeeklyPlanID  string
	EmployeeID    *string
	Description   string
	ActualHours   decimal.Decimal
	CompletedAt   *time.Time
	AttachmentURL *string
}

// AddTask appends t, points it at w and recomputes the status.
func (w *WeeklyPlan) AddTask(t *WeeklyTask) {
	t.WeeklyPlanID = w.ID
	w.Tasks = append(w.Tasks, t)
	w.Status = DeriveStatus(w.Tasks)
}

// AddAssignee records an employee identity once, keeping first-seen order.
func (w *WeeklyPlan) AddAssignee(id string) {
	w.Assignees = appendUnique(w.Assignees, id)
}

// AddCompany records a company identity once, keeping first-seen order.
func (w *WeeklyPlan) AddCompany(id string) {
	w.Companies = appendUnique(w.Companies, id)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
