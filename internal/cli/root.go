// Package cli exposes the plan pipeline and maintenance use cases as
// cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/planrollup/internal/cli/formatter"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// App holds the services commands run against. Connect fills them in the
// first time a command needs the store; tests set them directly.
type App struct {
	Plans       service.PlanService
	Maintenance service.MaintenanceService

	Connect func(ctx context.Context, app *App) error

	// Year is the --year override, zero when unset.
	Year int

	IsInteractive func() bool
	// Confirm asks a yes/no question. Nil uses a huh form.
	Confirm func(title, description string) (bool, error)
}

func (a *App) connect(ctx context.Context) error {
	if a.Plans != nil && a.Maintenance != nil {
		return nil
	}
	if a.Connect == nil {
		return fmt.Errorf("no store configured")
	}
	return a.Connect(ctx, a)
}

func (a *App) interactive() bool {
	if a.IsInteractive != nil {
		return a.IsInteractive()
	}
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewRootCmd creates the top-level "planrollup" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "planrollup",
		Short:         "Roll timesheet rows up into weekly plans and reconcile them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&app.Year, "year", 0, "planning year for annual plan lookup (default: each unit's own year)")

	root.AddCommand(
		newBuildCmd(app),
		newLinkCmd(app),
		newImportCmd(app),
		newRunCmd(app),
		newResolveCmd(app),
		newMergeCmd(app),
		newWipeCmd(app),
		newCleanupCmd(app),
		newKeyCmd(),
	)
	return root
}

// printRun renders the report; it runs even when the use case failed so
// partial counts are visible.
func printRun(cmd *cobra.Command, run *report.Run) {
	if run == nil {
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRun(run))
}
