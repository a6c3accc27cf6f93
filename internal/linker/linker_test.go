package linker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/linker"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/alexanderramin/planrollup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(weekStart, process, dept, mainTask string) linker.Item {
	return linker.Item{
		Plan:         testutil.NewTestWeekly(weekStart),
		ProcessID:    process,
		ProcessName:  "Process " + process,
		DepartmentID: dept,
		MainTask:     mainTask,
		Year:         2025,
	}
}

func seedAnnual(t *testing.T, repos *repository.Repos, dept string) *domain.AnnualPlan {
	t.Helper()
	a := testutil.NewTestAnnual(dept, 2025)
	require.NoError(t, repos.Annual.Create(context.Background(), a))
	return a
}

func TestLink_CreatesOnePerProcessAndQuarter(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	a := seedAnnual(t, repos, "dept-1")

	items := []linker.Item{
		item("2025-02-03", "p1", "dept-1", "SIEM tuning"),
		item("2025-02-10", "p1", "dept-1", "Rule review"),
		item("2025-04-07", "p1", "dept-1", "SIEM tuning"),
		item("2025-02-03", "p2", "dept-1", "Audit"),
	}
	summary, failures := linker.New(repos, linker.Options{}).Link(ctx, items)
	require.Empty(t, failures)

	assert.Equal(t, 3, summary.QuarterlyCreated)
	assert.Equal(t, 4, summary.Linked)
	assert.Equal(t, *items[0].Plan.QuarterlyID, *items[1].Plan.QuarterlyID)
	assert.NotEqual(t, *items[0].Plan.QuarterlyID, *items[2].Plan.QuarterlyID)

	quarters, err := repos.Quarterly.ListByAnnual(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, quarters, 3)
	for _, q := range quarters {
		if q.ID != *items[0].Plan.QuarterlyID {
			continue
		}
		assert.Equal(t, 1, q.Quarter)
		assert.Equal(t, "Process p1 - Q1/2025", q.Goal)
		assert.Equal(t, "SIEM tuning; Rule review", q.ExpectedResult)
		assert.Equal(t, domain.QuarterlyApproved, q.Status)
		assert.Equal(t, "dept-1", *q.DepartmentID)
	}
}

func TestLink_IsIdempotent(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	a := seedAnnual(t, repos, "dept-1")

	items := []linker.Item{
		item("2025-02-03", "p1", "dept-1", "SIEM tuning"),
		item("2025-05-05", "p2", "dept-1", "Audit"),
	}
	_, failures := linker.New(repos, linker.Options{}).Link(ctx, items)
	require.Empty(t, failures)
	first := []string{*items[0].Plan.QuarterlyID, *items[1].Plan.QuarterlyID}

	summary, failures := linker.New(repos, linker.Options{}).Link(ctx, items)
	require.Empty(t, failures)

	assert.Zero(t, summary.QuarterlyCreated)
	assert.Equal(t, 2, summary.QuarterlyReused)
	assert.Equal(t, 2, summary.AlreadyLinked)
	assert.Equal(t, first, []string{*items[0].Plan.QuarterlyID, *items[1].Plan.QuarterlyID})

	quarters, err := repos.Quarterly.ListByAnnual(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, quarters, 2)
}

func TestLink_ReusesExistingQuarterly(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	a := seedAnnual(t, repos, "dept-1")
	existing := testutil.NewTestQuarterly(a.ID, "p1", 1)
	require.NoError(t, repos.Quarterly.Create(ctx, existing))

	stale := "someone-else"
	it := item("2025-03-31", "p1", "dept-1", "SIEM tuning")
	it.Plan.QuarterlyID = &stale
	items := []linker.Item{it}

	summary, failures := linker.New(repos, linker.Options{}).Link(ctx, items)
	require.Empty(t, failures)
	assert.Zero(t, summary.QuarterlyCreated)
	assert.Equal(t, 1, summary.Relinked)
	assert.Equal(t, existing.ID, *items[0].Plan.QuarterlyID)
}

func TestLink_UnlinkedReasons(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	seedAnnual(t, repos, "dept-1")

	linkedBefore := "q-old"
	noProcess := item("2025-02-03", "", "dept-1", "Misc")
	noProcess.Plan.QuarterlyID = &linkedBefore
	items := []linker.Item{
		noProcess,
		item("2025-02-03", "p1", "", "Misc"),
		item("2025-02-03", "p1", "dept-9", "Misc"),
	}

	summary, failures := linker.New(repos, linker.Options{}).Link(ctx, items)
	require.Empty(t, failures)
	assert.Equal(t, 3, summary.Unlinked)
	assert.Equal(t, map[string]int{
		linker.ReasonNoProcess:    1,
		linker.ReasonNoDepartment: 1,
		linker.ReasonNoAnnualPlan: 1,
	}, summary.UnlinkedReasons)
	for _, it := range items {
		assert.Nil(t, it.Plan.QuarterlyID)
	}
}

func TestLink_YearOverride(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	seedAnnual(t, repos, "dept-1")

	it := item("2024-12-30", "p1", "dept-1", "Year end")
	it.Year = 2024
	items := []linker.Item{it}

	summary, _ := linker.New(repos, linker.Options{}).Link(ctx, items)
	assert.Equal(t, 1, summary.UnlinkedReasons[linker.ReasonNoAnnualPlan])

	summary, _ = linker.New(repos, linker.Options{Year: 2025}).Link(ctx, items)
	assert.Equal(t, 1, summary.Linked)
}

func TestLink_CreateFailureIsReportedAndRunContinues(t *testing.T) {
	s := testutil.NewTestStore(t)
	failing := &testutil.FailingStore{
		Store:  s,
		Op:     "insert",
		Table:  store.TableQuarterlyPlans,
		FailOn: 1,
		Err:    errors.New("connection reset"),
	}
	repos := repository.New(failing)
	ctx := context.Background()
	seedAnnual(t, repository.New(s), "dept-1")

	items := []linker.Item{
		item("2025-02-03", "p1", "dept-1", "A"),
		item("2025-02-03", "p2", "dept-1", "B"),
	}
	summary, failures := linker.New(repos, linker.Options{}).Link(ctx, items)

	require.Len(t, failures, 1)
	assert.Equal(t, items[0].Plan.ID, failures[0].Subject)
	assert.Equal(t, 1, summary.UnlinkedReasons[linker.ReasonCreateFailed])
	assert.Equal(t, 1, summary.Linked)
	assert.NotNil(t, items[1].Plan.QuarterlyID)
}
