package main

import (
	"fmt"

	"github.com/Florenz0707/NASSAV-sub000/internal/di"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/spf13/cobra"
)

func newMediaCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newRefreshCommand(ctx),
		newDeleteCommand(ctx),
		newGetCommand(ctx),
		newDownloadCommand(ctx),
		newTranslateCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "add <identifier>",
		Short: "Scrape a work and store its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				media, err := app.Acquisition.Add(cmd.Context(), args[0], source)
				if err != nil {
					return err
				}
				return writeJSON(cmd, media)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", models.AnySource, "Source name, or \"any\" to fall back across sources")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <identifier>",
		Short: "Re-scrape a stored work from its original source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				media, err := app.Acquisition.Refresh(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, media)
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var files bool
	cmd := &cobra.Command{
		Use:   "delete <identifier>",
		Short: "Delete a work's record, and optionally its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				removed, err := app.Acquisition.Delete(cmd.Context(), args[0], files)
				if err != nil {
					return err
				}
				for _, path := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&files, "files", false, "Also delete video, cover and thumbnail files")
	return cmd
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <identifier>",
		Short: "Print a stored work as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				media, err := app.Acquisition.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if media == nil {
					return fmt.Errorf("media %s: %w", args[0], models.ErrNotFound)
				}
				return writeJSON(cmd, media)
			})
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <identifier>",
		Short: "Queue the video download of a stored work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				jobID, err := app.Acquisition.Download(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued download of %s (job %s)\n", args[0], jobID)
				return nil
			})
		},
	}
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var pending bool
	var limit int
	cmd := &cobra.Command{
		Use:   "translate [identifier]",
		Short: "Translate a work's title, or every pending title with --pending",
		Args: func(cmd *cobra.Command, args []string) error {
			if pending {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				if pending {
					n, err := app.Translations.TranslatePending(cmd.Context(), limit)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Translated %d titles\n", n)
					return nil
				}

				identifier, err := utils.NormalizeIdentifier(args[0])
				if err != nil {
					return err
				}
				if err := app.Translations.TranslateRecord(cmd.Context(), identifier); err != nil {
					return err
				}
				media, err := app.DB.GetMedia(cmd.Context(), identifier)
				if err != nil {
					return err
				}
				return writeJSON(cmd, media)
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "Translate every pending or failed title")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum titles per run with --pending")
	return cmd
}
