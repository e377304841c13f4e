package main

import (
	"fmt"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/controllers"
	"github.com/Florenz0707/NASSAV-sub000/internal/di"
	"github.com/spf13/cobra"
)

const allChecks = "all"

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var opts controllers.ReconcileOptions
	cmd := &cobra.Command{
		Use:   "reconcile <check>",
		Short: "Report, and with --apply fix, drift between records and files",
		Long: fmt.Sprintf("Checks: %s, or %q for every check.", strings.Join([]string{
			controllers.CheckFiles,
			controllers.CheckCovers,
			controllers.CheckThumbnails,
			controllers.CheckAvatars,
			controllers.CheckActorNames,
			controllers.CheckOrphans,
		}, ", "), allChecks),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				if args[0] == allChecks {
					reports, err := app.Reconciler.RunAll(cmd.Context(), app.Reconciler.Checks(), opts)
					if err != nil {
						return err
					}
					return writeJSON(cmd, reports)
				}

				report, err := app.Reconciler.Run(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return writeJSON(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Fix the findings instead of only reporting them")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum records scanned per check (0 = all)")
	return cmd
}

func newCookieCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cookie <source>",
		Short: "Refresh and persist a source's session cookie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				if _, err := app.Registry.RefreshCookie(cmd.Context(), strings.ToLower(args[0])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cookie refreshed for %s\n", args[0])
				return nil
			})
		},
	}
}
