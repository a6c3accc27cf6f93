package cli

import (
	"strings"

	"github.com/alexanderramin/planrollup/internal/service"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/spf13/cobra"
)

func newMergeCmd(app *App) *cobra.Command {
	var req service.MergeRequest
	var yes bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Collapse duplicate weekly plans that share a quarterly plan and week",
		Long: "Collapse duplicate weekly plans that share a quarterly plan and week.\n\n" +
			"The oldest identity survives; tasks and links move to it and its planned hours become the sum of its tasks' actual hours. " +
			"A group whose hour totals change while moving is left untouched.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !req.DryRun {
				if err := app.confirm(yes, "Merge duplicate weekly plans?",
					"Duplicates are deleted after their tasks move to the survivor."); err != nil {
					return err
				}
			}
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Maintenance.Merge(cmd.Context(), req)
			printRun(cmd, run)
			return err
		},
	}
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "report duplicate groups without writing")
	cmd.Flags().BoolVar(&req.Quarterly, "quarterly", false, "first collapse duplicate quarterly plans")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newWipeCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every quarterly and weekly plan, task and link; annual plans stay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.confirm(yes, "Wipe all plan data below annual plans?",
				"Empties "+strings.Join(store.DependentTables, ", ")+"."); err != nil {
				return err
			}
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Maintenance.Wipe(cmd.Context())
			printRun(cmd, run)
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newCleanupCmd(app *App) *cobra.Command {
	var dryRun, yes bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete weekly plans that have no tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !dryRun {
				if err := app.confirm(yes, "Delete weekly plans without tasks?",
					"Their assignee and company links are deleted too."); err != nil {
					return err
				}
			}
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Maintenance.CleanupEmpty(cmd.Context(), dryRun)
			printRun(cmd, run)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count empty weekly plans without deleting")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
