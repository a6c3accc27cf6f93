package cli

import (
	"fmt"

	"github.com/alexanderramin/planrollup/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type sourceFlags struct {
	input  string
	sheet  string
	scoped bool
	stable bool
}

func (f *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.input, "input", "i", "", "timesheet workbook (.xlsx)")
	fs.StringVar(&f.sheet, "sheet", "", "sheet name (default: first sheet)")
	fs.BoolVar(&f.scoped, "scoped", false, "keep weeks of different processes apart even when their main tasks match")
	fs.BoolVar(&f.stable, "stable", false, "sort rows by sheet position before grouping")
}

func (f *sourceFlags) source() service.Source {
	return service.Source{
		Path:        f.input,
		Sheet:       f.sheet,
		Scoped:      f.scoped,
		StableOrder: f.stable,
	}
}

func newBuildCmd(app *App) *cobra.Command {
	var src sourceFlags
	var bundle string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Aggregate a timesheet into a plan bundle without touching the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, _, err := app.Plans.Build(cmd.Context(), service.BuildRequest{
				Source:     src.source(),
				BundlePath: bundle,
			})
			printRun(cmd, run)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bundle written to %s\n", bundle)
			return nil
		},
	}
	src.register(cmd.Flags())
	cmd.Flags().StringVarP(&bundle, "bundle", "b", "", "output bundle path (.json)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("bundle")
	return cmd
}

func newLinkCmd(app *App) *cobra.Command {
	var bundle string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Attach bundle weekly plans to quarterly plans, creating missing ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Plans.Link(cmd.Context(), bundle)
			printRun(cmd, run)
			return err
		},
	}
	cmd.Flags().StringVarP(&bundle, "bundle", "b", "", "bundle to link in place")
	_ = cmd.MarkFlagRequired("bundle")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var bundle string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Insert a bundle's weekly plans, tasks and links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Plans.Import(cmd.Context(), bundle)
			printRun(cmd, run)
			return err
		},
	}
	cmd.Flags().StringVarP(&bundle, "bundle", "b", "", "bundle to import")
	_ = cmd.MarkFlagRequired("bundle")
	return cmd
}

func newRunCmd(app *App) *cobra.Command {
	var src sourceFlags
	var bundle string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build, link and import in one pass",
		Long: "Build, link and import in one pass.\n\n" +
			"Running twice over the same timesheet inserts duplicates; run `wipe` first or `merge` after.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Plans.Run(cmd.Context(), service.RunRequest{
				Source:     src.source(),
				BundlePath: bundle,
			})
			printRun(cmd, run)
			return err
		},
	}
	src.register(cmd.Flags())
	cmd.Flags().StringVarP(&bundle, "bundle", "b", "", "also keep the linked bundle at this path")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newResolveCmd(app *App) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:     "resolve",
		Aliases: []string{"analyze"},
		Short:   "Report reference resolution hit rates for a timesheet",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.connect(cmd.Context()); err != nil {
				return err
			}
			run, err := app.Plans.Analyze(cmd.Context(), src.source())
			printRun(cmd, run)
			return err
		},
	}
	src.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
