package repository_test

import (
	"context"
	"testing"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/alexanderramin/planrollup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnual_FindByDepartmentAndYear(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	a := testutil.NewTestAnnual("dept-1", 2025)
	require.NoError(t, repos.Annual.Create(ctx, a))

	got, err := repos.Annual.Find(ctx, "dept-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = repos.Annual.Find(ctx, "dept-1", 2024)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestQuarterly_CreateAndList(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	a := testutil.NewTestAnnual("dept-1", 2025)
	require.NoError(t, repos.Annual.Create(ctx, a))

	q := testutil.NewTestQuarterly(a.ID, "proc-1", 2)
	dept := "dept-1"
	q.DepartmentID = &dept
	require.NoError(t, repos.Quarterly.Create(ctx, q))

	list, err := repos.Quarterly.ListByAnnual(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, q, list[0])

	n, err := repos.Quarterly.Delete(ctx, []string{q.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWeekly_RoundTripsHoursAndDates(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	w := testutil.NewTestWeekly("2025-02-03", testutil.WithPlanned("13.5"))
	w.AddTask(testutil.NewTestTask("2.5", testutil.WithCompletedAt("2025-02-05"), testutil.WithEmployee("emp-1")))
	w.AddTask(testutil.NewTestTask("0"))
	testutil.SeedWeekly(t, repos, w)

	got, err := repos.Weekly.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.PlannedHours.Equal(testutil.Hours("13.5")))
	assert.Equal(t, testutil.Date("2025-02-03"), got.WeekStart)
	assert.Equal(t, domain.PlanActive, got.Status)
	assert.Nil(t, got.QuarterlyID)

	tasks, err := repos.Tasks.ListByWeekly(ctx, []string{w.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.True(t, domain.SumActual(tasks).Equal(testutil.Hours("2.5")))

	var done *domain.WeeklyTask
	for _, task := range tasks {
		if task.CompletedAt != nil {
			done = task
		}
	}
	require.NotNil(t, done)
	assert.Equal(t, testutil.Date("2025-02-05"), *done.CompletedAt)
	assert.Equal(t, "emp-1", *done.EmployeeID)
}

func TestWeekly_ListLinkedSkipsUnlinked(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	a := testutil.NewTestAnnual("dept-1", 2025)
	require.NoError(t, repos.Annual.Create(ctx, a))
	q := testutil.NewTestQuarterly(a.ID, "proc-1", 1)
	require.NoError(t, repos.Quarterly.Create(ctx, q))

	linked := testutil.NewTestWeekly("2025-02-03", testutil.WithQuarterly(q.ID))
	loose := testutil.NewTestWeekly("2025-02-03")
	testutil.SeedWeekly(t, repos, linked)
	testutil.SeedWeekly(t, repos, loose)

	list, err := repos.Weekly.ListLinked(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, linked.ID, list[0].ID)

	byQ, err := repos.Weekly.ListByQuarterly(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, byQ, 1)
	assert.Equal(t, linked.ID, byQ[0].ID)
}

func TestTasks_ReassignAndCount(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	from := testutil.NewTestWeekly("2025-02-03", testutil.WithTaskHours("1", "2"))
	to := testutil.NewTestWeekly("2025-02-03", testutil.WithTaskHours("3"))
	testutil.SeedWeekly(t, repos, from)
	testutil.SeedWeekly(t, repos, to)

	n, err := repos.Tasks.Reassign(ctx, from.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := repos.Tasks.Count(ctx, from.ID)
	require.NoError(t, err)
	assert.Zero(t, left)

	moved, err := repos.Tasks.Count(ctx, to.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, moved)

	owners, err := repos.Tasks.PlanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{to.ID: true}, owners)
}

func TestLinks_ListAndDelete(t *testing.T) {
	_, repos := testutil.NewTestRepos(t)
	ctx := context.Background()
	w := testutil.NewTestWeekly("2025-02-03",
		testutil.WithAssignees("emp-2", "emp-1"),
		testutil.WithCompanies("co-1"))
	testutil.SeedWeekly(t, repos, w)

	assignees, err := repos.Assignees.ListByWeekly(ctx, []string{w.ID})
	require.NoError(t, err)
	assert.Equal(t, []repository.Link{
		{WeeklyID: w.ID, TargetID: "emp-1"},
		{WeeklyID: w.ID, TargetID: "emp-2"},
	}, assignees)

	companies, err := repos.Companies.ListByWeekly(ctx, []string{w.ID})
	require.NoError(t, err)
	assert.Equal(t, []repository.Link{{WeeklyID: w.ID, TargetID: "co-1"}}, companies)

	n, err := repos.Assignees.DeleteByWeekly(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
