package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/alexanderramin/planrollup/internal/service"
	"github.com/alexanderramin/planrollup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

const deptOKB = "36dab3d8-2c16-4c1c-ae8c-b62367482a7e"

// testApp wires services over an in-memory store holding one annual plan
// for 2025. Sessions are non-interactive unless a test says otherwise.
func testApp(t *testing.T) (*App, *repository.Repos) {
	t.Helper()
	s, repos := testutil.NewTestRepos(t)
	require.NoError(t, repos.Annual.Create(context.Background(), testutil.NewTestAnnual(deptOKB, 2025)))

	tables, err := reference.Default()
	require.NoError(t, err)

	return &App{
		Plans:         service.NewPlanService(s, reference.NewResolver(tables), service.PlanOptions{}),
		Maintenance:   service.NewMaintenanceService(s, nil),
		IsInteractive: func() bool { return false },
	}, repos
}

func timesheet(t *testing.T) string {
	t.Helper()
	return testutil.WriteWorkbook(t, [][]any{
		testutil.TimesheetHeader,
		{"Управління подіями ІБ", "SIEM tuning", "ОКБ", "Казаков", 8, "2025-02-05",
			"Rule review", "2025-02-06", "", "", "АТБ Маркет", 2},
		{"Управління подіями ІБ", "SIEM tuning", "ОКБ", "Казаков", 6, "2025-02-06",
			"Parser fix", "", "", "", "", 0},
	})
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRunCmd_ImportsAndReports(t *testing.T) {
	app, repos := testApp(t)

	out, err := executeCmd(t, app, "run", "--input", timesheet(t))
	require.NoError(t, err)
	assert.Contains(t, out, "RESOLUTION")
	assert.Contains(t, out, "LINK")
	assert.Contains(t, out, "IMPORT")

	plans, err := repos.Weekly.ListLinked(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "8", plans[0].PlannedHours.String())
}

func TestBuildLinkImportCmds(t *testing.T) {
	app, repos := testApp(t)
	bundle := filepath.Join(t.TempDir(), "bundle.json")

	out, err := executeCmd(t, app, "build", "-i", timesheet(t), "-b", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "bundle written to "+bundle)
	_, err = os.Stat(bundle)
	require.NoError(t, err)

	_, err = executeCmd(t, app, "link", "-b", bundle)
	require.NoError(t, err)
	_, err = executeCmd(t, app, "import", "-b", bundle)
	require.NoError(t, err)

	plans, err := repos.Weekly.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestPlanCmds_RequireFlags(t *testing.T) {
	app, _ := testApp(t)

	_, err := executeCmd(t, app, "build", "-i", "x.xlsx")
	assert.ErrorContains(t, err, `"bundle"`)

	_, err = executeCmd(t, app, "resolve")
	assert.ErrorContains(t, err, `"input"`)
}

func TestResolveCmd_WritesNothing(t *testing.T) {
	app, repos := testApp(t)

	out, err := executeCmd(t, app, "analyze", "-i", timesheet(t))
	require.NoError(t, err)
	assert.Contains(t, out, "process")

	plans, err := repos.Weekly.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestWipeCmd_Confirmation(t *testing.T) {
	app, _ := testApp(t)

	_, err := executeCmd(t, app, "wipe")
	assert.ErrorContains(t, err, "--yes")

	app.IsInteractive = func() bool { return true }
	var asked string
	app.Confirm = func(title, _ string) (bool, error) {
		asked = title
		return false, nil
	}
	_, err = executeCmd(t, app, "wipe")
	assert.ErrorIs(t, err, errNotConfirmed)
	assert.Contains(t, asked, "Wipe")

	app.Confirm = func(string, string) (bool, error) { return true, nil }
	out, err := executeCmd(t, app, "wipe")
	require.NoError(t, err)
	assert.Contains(t, out, "DELETED")
}

func TestWipeCmd_YesSkipsPrompt(t *testing.T) {
	app, repos := testApp(t)
	_, err := executeCmd(t, app, "run", "-i", timesheet(t))
	require.NoError(t, err)

	_, err = executeCmd(t, app, "wipe", "--yes")
	require.NoError(t, err)

	plans, err := repos.Weekly.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestMergeAndCleanupCmds_DryRunNeedNoConfirmation(t *testing.T) {
	app, _ := testApp(t)

	out, err := executeCmd(t, app, "merge", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "MERGE (DRY RUN)")

	out, err = executeCmd(t, app, "cleanup", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "CLEANUP (DRY RUN)")

	_, err = executeCmd(t, app, "cleanup")
	assert.ErrorContains(t, err, "--yes")
}

func TestConnect_CalledOnce(t *testing.T) {
	full, _ := testApp(t)
	calls := 0
	app := &App{
		IsInteractive: func() bool { return false },
		Connect: func(_ context.Context, a *App) error {
			calls++
			a.Plans = full.Plans
			a.Maintenance = full.Maintenance
			return nil
		},
	}

	_, err := executeCmd(t, app, "merge", "--dry-run", "--year", "2025")
	require.NoError(t, err)
	assert.Equal(t, 2025, app.Year)
	_, err = executeCmd(t, app, "cleanup", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = executeCmd(t, &App{}, "merge", "--dry-run")
	assert.ErrorContains(t, err, "no store configured")
}

func TestKeyCmds(t *testing.T) {
	gokeyring.MockInit()
	app := &App{}

	out, err := executeCmd(t, app, "key", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "no REST key stored")

	_, err = executeCmd(t, app, "key", "set", "service-key")
	require.NoError(t, err)

	out, err = executeCmd(t, app, "key", "status")
	require.NoError(t, err)
	assert.Equal(t, "REST key stored\n", out)

	out, err = executeCmd(t, app, "key", "delete")
	require.NoError(t, err)
	assert.Contains(t, out, "REST key removed")
}

func TestMergeCmd_HelpDescribesPlannedHours(t *testing.T) {
	app, _ := testApp(t)

	out, err := executeCmd(t, app, "merge", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "sum of its tasks' actual hours")
	assert.NotContains(t, out, "planned hours are summed")
}
