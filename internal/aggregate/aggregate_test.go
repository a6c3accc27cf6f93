package aggregate

import (
	"strings"
	"testing"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/normalize"
	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kazakov   = "bb9a7893-c095-4392-aa96-e5a788c9a02c"
	vengher   = "ef247c2d-bd70-44b8-bcce-2fc2a64c0dd0"
	procMon   = "24bd91ff-e239-4ced-8a76-568ffee96328"
	procMgmt  = "4bbb4e4c-6346-465f-8105-ff2b19043a98"
	deptOKB   = "36dab3d8-2c16-4c1c-ae8c-b62367482a7e"
	atbMarket = "805be13b-5cc8-4084-ab0b-3c45ca6e89e6"
)

func newAggregator(t *testing.T, opts Options) *Aggregator {
	t.Helper()
	tables, err := reference.Default()
	require.NoError(t, err)
	return New(reference.NewResolver(tables), opts)
}

func records(t *testing.T, rows ...domain.RawRow) []domain.NormalizedRecord {
	t.Helper()
	for i := range rows {
		if rows[i].Index == 0 {
			rows[i].Index = i + 2
		}
	}
	res := normalize.Rows(rows)
	require.Zero(t, res.Dropped, "fixture rows must all normalize")
	return res.Records
}

func siemRow(employee string, planned any) domain.RawRow {
	return domain.RawRow{
		Process:      "Управління подіями ІБ",
		MainTask:     "SIEM tuning",
		Department:   "ОКБ",
		Employee:     employee,
		PlannedHours: planned,
		PlanDate:     "2025-02-05",
		Task:         "Rule review",
		CompletedAt:  "2025-02-06",
		ActualHours:  2,
	}
}

func TestAggregate_PlannedHoursTakesMaxPerEmployee(t *testing.T) {
	a := newAggregator(t, Options{})

	res := a.Aggregate(records(t,
		siemRow("Казаков", 8),
		siemRow("Казаков", 8),
		siemRow("Казаков", 6),
	))

	require.Len(t, res.Units, 1)
	u := res.Units[0]
	assert.True(t, u.Plan.PlannedHours.Equal(decimal.NewFromInt(8)), "got %s", u.Plan.PlannedHours)
	assert.Len(t, u.Plan.Tasks, 3)
	assert.Equal(t, []string{kazakov}, u.Plan.Assignees)
	assert.Equal(t, "2025-02-03", u.Plan.WeekStart.Format(domain.DateLayout))
	assert.Equal(t, 3, u.RowCount)
}

func TestAggregate_PlannedHoursSumsAcrossEmployees(t *testing.T) {
	a := newAggregator(t, Options{})

	res := a.Aggregate(records(t,
		siemRow("Казаков", 8),
		siemRow("Венгер", 3),
		siemRow("Казаков", 4),
		siemRow("Незнайомець", "2,5"),
		siemRow("", 40),
	))

	require.Len(t, res.Units, 1)
	u := res.Units[0]
	assert.True(t, u.Plan.PlannedHours.Equal(decimal.RequireFromString("13.5")), "got %s", u.Plan.PlannedHours)
	assert.Equal(t, []string{kazakov, vengher}, u.Plan.Assignees)
	assert.Nil(t, u.Plan.Tasks[3].EmployeeID)
}

func TestAggregate_StatusActiveWhenAnyTaskOpen(t *testing.T) {
	a := newAggregator(t, Options{})

	open := siemRow("Венгер", 4)
	open.CompletedAt = nil
	open.ActualHours = nil

	res := a.Aggregate(records(t, siemRow("Казаков", 8), open))
	require.Len(t, res.Units, 1)
	assert.Equal(t, domain.PlanActive, res.Units[0].Plan.Status)

	res = a.Aggregate(records(t, siemRow("Казаков", 8)))
	assert.Equal(t, domain.PlanCompleted, res.Units[0].Plan.Status)
}

func TestAggregate_GroupsByWeekAndMainTask(t *testing.T) {
	a := newAggregator(t, Options{})

	nextWeek := siemRow("Казаков", 8)
	nextWeek.PlanDate = "2025-02-12"
	otherTask := siemRow("Казаков", 8)
	otherTask.MainTask = "EDR rollout"
	otherProcess := siemRow("Казаков", 8)
	otherProcess.Process = "Проєктна діяльність"

	res := a.Aggregate(records(t, siemRow("Казаков", 8), nextWeek, otherTask, otherProcess))

	require.Len(t, res.Units, 3)
	assert.Equal(t, "SIEM tuning", res.Units[0].MainTask)
	assert.Equal(t, 7, res.Units[1].Key.Week)
	assert.Equal(t, "EDR rollout", res.Units[2].MainTask)
	assert.Len(t, res.Units[0].Plan.Tasks, 2, "process label is not part of the default key")

	u, ok := res.Lookup(Key{ISOYear: 2025, Week: 6, MainTask: "SIEM tuning"})
	require.True(t, ok)
	assert.Same(t, res.Units[0], u)
	assert.Equal(t, 4, res.TaskCount())
}

func TestAggregate_SameWeekNumberInDifferentYearsStaysApart(t *testing.T) {
	a := newAggregator(t, Options{})

	lastYear := siemRow("Казаков", 8)
	lastYear.PlanDate = "2024-02-07"

	res := a.Aggregate(records(t, siemRow("Казаков", 8), lastYear))
	require.Len(t, res.Units, 2)
	assert.Equal(t, res.Units[0].Key.Week, res.Units[1].Key.Week)
}

func TestAggregate_ScopeByProcessSplitsGroups(t *testing.T) {
	a := newAggregator(t, Options{ScopeByProcess: true})

	otherProcess := siemRow("Казаков", 8)
	otherProcess.Process = "Проєктна діяльність"

	res := a.Aggregate(records(t, siemRow("Казаков", 8), otherProcess))

	require.Len(t, res.Units, 2)
	assert.Equal(t, procMon, res.Units[0].Key.ProcessID)
	assert.Equal(t, 1, res.Units[0].Key.Quarter)
	assert.Equal(t, procMgmt, res.Units[1].Key.ProcessID)
}

func TestAggregate_FirstNonNullMetadataWins(t *testing.T) {
	a := newAggregator(t, Options{})

	first := siemRow("Казаков", 8)
	first.Process = ""
	first.Department = ""
	second := siemRow("Казаков", 8)
	second.Department = "ОКБ"
	third := siemRow("Казаков", 8)
	third.Process = "Проєктна діяльність"

	res := a.Aggregate(records(t, first, second, third))

	require.Len(t, res.Units, 1)
	u := res.Units[0]
	assert.Equal(t, "Управління подіями ІБ", domain.Deref(u.ProcessLabel))
	assert.Equal(t, procMon, u.Process.ID)
	assert.Equal(t, deptOKB, u.Department.ID)
}

func TestAggregate_StableOrderUsesRowIndex(t *testing.T) {
	early := siemRow("Казаков", 8)
	early.Index = 2
	early.Process = "Проєктна діяльність"
	late := siemRow("Казаков", 8)
	late.Index = 9

	recs := records(t, late, early)

	plain := newAggregator(t, Options{}).Aggregate(recs)
	assert.Equal(t, "Управління подіями ІБ", domain.Deref(plain.Units[0].ProcessLabel))

	stable := newAggregator(t, Options{StableOrder: true}).Aggregate(recs)
	assert.Equal(t, "Проєктна діяльність", domain.Deref(stable.Units[0].ProcessLabel))
	assert.Equal(t, 9, recs[0].Index, "caller slice is not reordered")
}

func TestAggregate_UnresolvedProcessKeepsUnit(t *testing.T) {
	a := newAggregator(t, Options{})

	row := siemRow("Казаков", 8)
	row.Process = "Щось нове"

	res := a.Aggregate(records(t, row))

	require.Len(t, res.Units, 1)
	assert.False(t, res.Units[0].Process.Resolved())
	stats := res.Tally.Stats(reference.CategoryProcess)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Unresolved["Щось нове"])
}

func TestAggregate_TaskDescriptionAndCompanies(t *testing.T) {
	a := newAggregator(t, Options{MaxDescription: 20})

	withCompany := siemRow("Казаков", 8)
	withCompany.Company = "АТБ-Маркет"
	withCompany.Document = "https://docs.example/1"
	noTask := siemRow("Казаков", 8)
	noTask.Task = ""
	long := siemRow("Казаков", 8)
	long.Task = strings.Repeat("ж", 40)

	res := a.Aggregate(records(t, withCompany, noTask, long))

	tasks := res.Units[0].Plan.Tasks
	assert.Equal(t, "Rule review - АТБ-Ма", tasks[0].Description)
	assert.Equal(t, "https://docs.example/1", domain.Deref(tasks[0].AttachmentURL))
	assert.Equal(t, "SIEM tuning", tasks[1].Description)
	assert.Equal(t, strings.Repeat("ж", 20), tasks[2].Description)
	assert.Equal(t, []string{atbMarket}, res.Units[0].Plan.Companies)

	for _, task := range tasks {
		assert.Equal(t, res.Units[0].Plan.ID, task.WeeklyPlanID)
	}
}

func TestAggregate_ExpectedResultIsTruncated(t *testing.T) {
	a := newAggregator(t, Options{MaxExpectedResult: 5})

	row := siemRow("Казаков", 8)
	row.MainTask = "Моніторинг подій"

	res := a.Aggregate(records(t, row))
	assert.Equal(t, "Моніт", res.Units[0].Plan.ExpectedResult)
	assert.Equal(t, "Моніторинг подій", res.Units[0].Key.MainTask)
}
