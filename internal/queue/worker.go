package queue

import (
	"context"
	"fmt"

	"github.com/Florenz0707/NASSAV-sub000/internal/metrics"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// DownloadRunner performs one download job
type DownloadRunner interface {
	Run(ctx context.Context, identifier, jobID string) error
}

// TitleTranslator performs one translation job
type TitleTranslator interface {
	TranslateRecord(ctx context.Context, identifier string) error
}

// NewServeMux routes task types to their handlers
func NewServeMux(downloads DownloadRunner, translations TitleTranslator, m *metrics.Metrics, logger *logrus.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeDownload, func(ctx context.Context, t *asynq.Task) error {
		p, err := ParsePayload(t)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err := downloads.Run(ctx, p.Identifier, p.JobID); err != nil {
			m.JobResult(TypeDownload, "failure")
			// the controller already retried
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		m.JobResult(TypeDownload, "success")
		return nil
	})

	mux.HandleFunc(TypeTranslate, func(ctx context.Context, t *asynq.Task) error {
		p, err := ParsePayload(t)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err := translations.TranslateRecord(ctx, p.Identifier); err != nil {
			m.JobResult(TypeTranslate, "failure")
			return err
		}
		m.JobResult(TypeTranslate, "success")
		return nil
	})

	mux.Use(func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			logger.WithField("type", t.Type()).Debug("Processing task")
			return next.ProcessTask(ctx, t)
		})
	})

	return mux
}

// Worker runs the asynq server
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logrus.Logger
}

// NewWorker creates a worker consuming the nassav queue
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, mux *asynq.ServeMux, logger *logrus.Logger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		Logger:      logger,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.WithFields(logrus.Fields{
				"type":  task.Type(),
				"error": err,
			}).Error("Task failed")
		}),
	})
	return &Worker{server: server, mux: mux, logger: logger}
}

// Start begins processing in the background
func (w *Worker) Start() error {
	w.logger.Info("Starting queue worker")
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Shutdown waits for running tasks and stops the server
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	w.logger.Info("Queue worker stopped")
}
