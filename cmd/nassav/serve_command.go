package main

import (
	"fmt"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/di"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket relay and scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *di.App) error {
				runCtx := cmd.Context()
				logger := app.Logger
				defer app.Hub.Close()

				if app.Relay != nil {
					go func() {
						if err := app.Relay.Run(runCtx); err != nil {
							logger.WithError(err).Error("Event relay stopped")
						}
					}()
				}

				if err := app.Scheduler.Start(); err != nil {
					return fmt.Errorf("failed to start scheduler: %w", err)
				}
				defer app.Scheduler.Stop()

				if app.Config.CacheBackend == config.CacheBackendMemory {
					logger.Info("Jobs run in-process with the memory backend")
				}

				logger.Info("NASSAV is running")
				err := app.Server.Start(runCtx)
				logger.Info("NASSAV stopped")
				return err
			})
		},
	}
}

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued download and translation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.CacheBackend != config.CacheBackendRedis {
				return fmt.Errorf("worker needs CACHE_BACKEND=%s; with the memory backend serve runs jobs itself", config.CacheBackendRedis)
			}

			return ctx.withApp(cmd, func(app *di.App) error {
				if err := app.Worker.Start(); err != nil {
					return err
				}
				<-cmd.Context().Done()
				app.Worker.Shutdown()
				return nil
			})
		},
	}
}
