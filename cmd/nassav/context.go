package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/di"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// commandContext lazily loads configuration shared by every sub-command
type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger         *logrus.Logger
	tracerProvider *sdktrace.TracerProvider

	// loadConfig is replaced in tests
	loadConfig func() (*config.Config, error)
}

func newCommandContext() *commandContext {
	return &commandContext{loadConfig: config.Load}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.configErr = fmt.Errorf("failed to load configuration: %w", err)
			return
		}
		c.config = cfg
		c.logger = utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
		c.logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Debug("Configuration loaded")

		c.tracerProvider = utils.NewTracerProvider(cfg.TraceSampleRatio, c.logger)
		otel.SetTracerProvider(c.tracerProvider)
	})
	return c.config, c.configErr
}

// withApp builds the object graph, runs fn and waits for in-process jobs
// unless the command was interrupted
func (c *commandContext) withApp(cmd *cobra.Command, fn func(app *di.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() {
		if cmd.Context().Err() == nil {
			app.Drain()
		}
	}()

	return fn(app)
}

func (c *commandContext) close() {
	if c.tracerProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.tracerProvider.Shutdown(ctx); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("Failed to flush traces")
	}
}
