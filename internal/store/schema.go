package store

import "github.com/go-faster/errors"

const (
	TableAnnualPlans     = "annual_plans"
	TableQuarterlyPlans  = "quarterly_plans"
	TableWeeklyPlans     = "weekly_plans"
	TableWeeklyAssignees = "weekly_plan_assignees"
	TableWeeklyCompanies = "weekly_plan_companies"
	TableWeeklyTasks     = "weekly_tasks"
)

// Table describes one collection: its key columns and every column a
// request may name.
type Table struct {
	Name    string
	Key     []string
	Columns []string
}

func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

var tables = map[string]Table{
	TableAnnualPlans: {
		Name:    TableAnnualPlans,
		Key:     []string{"annual_id"},
		Columns: []string{"annual_id", "department_id", "year", "goal"},
	},
	TableQuarterlyPlans: {
		Name: TableQuarterlyPlans,
		Key:  []string{"quarterly_id"},
		Columns: []string{
			"quarterly_id", "annual_plan_id", "department_id", "process_id",
			"quarter", "goal", "expected_result", "status",
		},
	},
	TableWeeklyPlans: {
		Name: TableWeeklyPlans,
		Key:  []string{"weekly_id"},
		Columns: []string{
			"weekly_id", "quarterly_id", "weekly_date", "expected_result",
			"planned_hours", "status",
		},
	},
	TableWeeklyAssignees: {
		Name:    TableWeeklyAssignees,
		Key:     []string{"weekly_plan_id", "user_id"},
		Columns: []string{"weekly_plan_id", "user_id"},
	},
	TableWeeklyCompanies: {
		Name:    TableWeeklyCompanies,
		Key:     []string{"weekly_id", "company_id"},
		Columns: []string{"weekly_id", "company_id"},
	},
	TableWeeklyTasks: {
		Name: TableWeeklyTasks,
		Key:  []string{"weekly_tasks_id"},
		Columns: []string{
			"weekly_tasks_id", "weekly_plan_id", "user_id", "description",
			"spent_hours", "completed_at", "attachment_url",
		},
	},
}

// DependentTables lists the collections below annual plans, children
// first, in the order they must be emptied.
var DependentTables = []string{
	TableWeeklyTasks,
	TableWeeklyAssignees,
	TableWeeklyCompanies,
	TableWeeklyPlans,
	TableQuarterlyPlans,
}

// Lookup returns the table definition for name.
func Lookup(name string) (Table, error) {
	t, ok := tables[name]
	if !ok {
		return Table{}, errors.Wrapf(ErrUnknownTable, "%q", name)
	}
	return t, nil
}

// CheckQuery verifies that every column named by q exists in t.
func (t Table) CheckQuery(q Query) error {
	if err := t.checkColumns(q.Columns...); err != nil {
		return err
	}
	if err := t.CheckFilters(q.Filters); err != nil {
		return err
	}
	for _, o := range q.Order {
		if err := t.checkColumns(o.Column); err != nil {
			return err
		}
	}
	return nil
}

func (t Table) CheckFilters(filters []Filter) error {
	for _, f := range filters {
		if err := t.checkColumns(f.Column); err != nil {
			return err
		}
	}
	return nil
}

func (t Table) CheckRow(r Row) error {
	for col := range r {
		if err := t.checkColumns(col); err != nil {
			return err
		}
	}
	return nil
}

func (t Table) checkColumns(cols ...string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return errors.Wrapf(ErrUnknownColumn, "%s.%s", t.Name, c)
		}
	}
	return nil
}
