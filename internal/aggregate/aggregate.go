// Package aggregate folds normalized rows into weekly plan units.
package aggregate

import (
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxExpectedResult = 500
	DefaultMaxDescription    = 500
	DescriptionSeparator     = " - "
)

type Options struct {
	// ScopeByProcess adds the resolved process and the quarter to the
	// grouping key.
	ScopeByProcess bool
	// StableOrder sorts records by source row index before grouping so
	// first-non-null fields do not depend on caller ordering.
	StableOrder       bool
	MaxExpectedResult int
	MaxDescription    int
	Logger            *slog.Logger
}

// Key identifies a weekly unit by week and main task. ISOYear is part of
// the key so the same week number in two years never shares a unit.
// ProcessID and Quarter stay zero unless grouping is scoped by process.
type Key struct {
	ProcessID string
	Quarter   int
	ISOYear   int
	Week      int
	MainTask  string
}

// Unit is a weekly plan under construction together with the labels and
// resolutions it was built from.
type Unit struct {
	Key             Key
	Plan            *domain.WeeklyPlan
	MainTask        string
	ProcessLabel    *string
	DepartmentLabel *string
	Process         reference.Match
	Department      reference.Match
	FirstPlanDate   time.Time
	RowCount        int

	employeeMax   map[string]decimal.Decimal
	employeeOrder []string
}

// Year is the calendar year of the first plan date seen for the unit.
func (u *Unit) Year() int {
	return u.FirstPlanDate.Year()
}

type Result struct {
	Units []*Unit
	Tally *reference.Tally
	byKey map[Key]*Unit
}

func (r *Result) Lookup(k Key) (*Unit, bool) {
	u, ok := r.byKey[k]
	return u, ok
}

// TaskCount is the number of weekly tasks across all units.
func (r *Result) TaskCount() int {
	n := 0
	for _, u := range r.Units {
		n += len(u.Plan.Tasks)
	}
	return n
}

type Aggregator struct {
	resolver *reference.Resolver
	opts     Options
	newID    func() string
}

func New(resolver *reference.Resolver, opts Options) *Aggregator {
	if opts.MaxExpectedResult <= 0 {
		opts.MaxExpectedResult = DefaultMaxExpectedResult
	}
	if opts.MaxDescription <= 0 {
		opts.MaxDescription = DefaultMaxDescription
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{resolver: resolver, opts: opts, newID: uuid.NewString}
}

// Aggregate groups records into units. Units come back in order of first
// appearance; identical input order yields identical output.
func (a *Aggregator) Aggregate(records []domain.NormalizedRecord) *Result {
	if a.opts.StableOrder {
		sorted := make([]domain.NormalizedRecord, len(records))
		copy(sorted, records)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
		records = sorted
	}

	res := &Result{Tally: reference.NewTally(), byKey: make(map[Key]*Unit)}
	for i := range records {
		rec := &records[i]
		key := a.keyFor(rec)
		u, ok := res.byKey[key]
		if !ok {
			u = a.newUnit(key, rec)
			res.byKey[key] = u
			res.Units = append(res.Units, u)
		}
		a.add(u, rec, res.Tally)
	}

	for _, u := range res.Units {
		a.finish(u, res.Tally)
	}

	a.opts.Logger.Debug("aggregated weekly units",
		"records", len(records),
		"units", len(res.Units),
		"scoped", a.opts.ScopeByProcess,
	)
	return res
}

func (a *Aggregator) keyFor(rec *domain.NormalizedRecord) Key {
	key := Key{ISOYear: rec.ISOYear, Week: rec.Week, MainTask: rec.MainTask}
	if a.opts.ScopeByProcess {
		key.ProcessID = a.resolver.Process(domain.Deref(rec.Process), rec.MainTask).ID
		key.Quarter = rec.Quarter
	}
	return key
}

func (a *Aggregator) newUnit(key Key, rec *domain.NormalizedRecord) *Unit {
	return &Unit{
		Key:      key,
		MainTask: rec.MainTask,
		Plan: &domain.WeeklyPlan{
			ID:             a.newID(),
			WeekStart:      rec.WeekStart,
			ExpectedResult: domain.Truncate(rec.MainTask, a.opts.MaxExpectedResult),
			PlannedHours:   decimal.Zero,
			Status:         domain.PlanCompleted,
		},
		FirstPlanDate: rec.PlanDate,
		employeeMax:   make(map[string]decimal.Decimal),
	}
}

func (a *Aggregator) add(u *Unit, rec *domain.NormalizedRecord, tally *reference.Tally) {
	u.RowCount++
	u.ProcessLabel = domain.FirstNonNil(u.ProcessLabel, rec.Process)
	u.DepartmentLabel = domain.FirstNonNil(u.DepartmentLabel, rec.Department)

	employeeLabel := domain.Deref(rec.Employee)
	employee := a.resolver.Employee(employeeLabel)
	tally.Record(reference.CategoryEmployee, employeeLabel, employee)
	if employee.Resolved() {
		u.Plan.AddAssignee(employee.ID)
	}
	if employeeLabel != "" {
		a.trackMax(u, employeeKey(employee, employeeLabel), rec.PlannedHours)
	}

	companyLabel := domain.Deref(rec.Company)
	deptLabel := domain.Deref(domain.FirstNonNil(rec.Department, u.DepartmentLabel))
	company := a.resolver.Company(companyLabel, deptLabel)
	tally.Record(reference.CategoryCompany, companyLabel, company)
	if company.Resolved() {
		u.Plan.AddCompany(company.ID)
	}

	u.Plan.AddTask(&domain.WeeklyTask{
		ID:            a.newID(),
		EmployeeID:    employee.IDPtr(),
		Description:   a.describe(rec),
		ActualHours:   rec.ActualHours,
		CompletedAt:   rec.CompletedAt,
		AttachmentURL: rec.Document,
	})
}

// trackMax keeps the largest single planned-hours value per employee.
func (a *Aggregator) trackMax(u *Unit, key string, hours decimal.Decimal) {
	prev, seen := u.employeeMax[key]
	if !seen {
		u.employeeOrder = append(u.employeeOrder, key)
		u.employeeMax[key] = hours
		return
	}
	if hours.GreaterThan(prev) {
		u.employeeMax[key] = hours
	}
}

func (a *Aggregator) finish(u *Unit, tally *reference.Tally) {
	total := decimal.Zero
	for _, key := range u.employeeOrder {
		total = total.Add(u.employeeMax[key])
	}
	u.Plan.PlannedHours = total
	u.Plan.Status = domain.DeriveStatus(u.Plan.Tasks)

	processLabel := domain.Deref(u.ProcessLabel)
	u.Process = a.resolver.Process(processLabel, u.MainTask)
	tally.Record(reference.CategoryProcess, processLabel, u.Process)

	deptLabel := domain.Deref(u.DepartmentLabel)
	u.Department = a.resolver.Department(deptLabel)
	tally.Record(reference.CategoryDepartment, deptLabel, u.Department)
}

func (a *Aggregator) describe(rec *domain.NormalizedRecord) string {
	desc := domain.CoalesceStr(domain.Deref(rec.Task), rec.MainTask)
	if rec.Company != nil {
		desc += DescriptionSeparator + *rec.Company
	}
	return domain.Truncate(desc, a.opts.MaxDescription)
}

// employeeKey prefers the resolved identity so two spellings of one
// person share a maximum; unresolved people are keyed by label.
func employeeKey(m reference.Match, label string) string {
	if m.Resolved() {
		return "id:" + m.ID
	}
	return "label:" + label
}
