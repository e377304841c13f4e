package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/cache"
	"github.com/Florenz0707/NASSAV-sub000/internal/metrics"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/notify"
	"github.com/Florenz0707/NASSAV-sub000/internal/queue"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/transfer"
	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// TransferRunner fetches a stream into saveDir/saveName
type TransferRunner interface {
	Run(ctx context.Context, locator, saveDir, saveName string, onProgress func(transfer.Progress)) (string, error)
}

// DownloadOptions bounds locking and retrying of downloads
type DownloadOptions struct {
	LockTTL          time.Duration // global download lock
	LockWait         time.Duration
	TaskLockTTL      time.Duration
	MaxRetries       int // retries after the first attempt
	RetryDelay       time.Duration
	ProgressInterval time.Duration
}

// DownloadController runs download jobs, one at a time across all workers
type DownloadController struct {
	db        *models.Database
	layout    *storage.Layout
	runner    TransferRunner
	locker    *cache.Locker
	ledger    *queue.Ledger
	progress  *queue.ProgressCache
	publisher notify.Publisher
	metrics   *metrics.Metrics
	opts      DownloadOptions
	logger    *logrus.Logger
}

// NewDownloadController creates a new download controller
func NewDownloadController(db *models.Database, layout *storage.Layout, runner TransferRunner, locker *cache.Locker, ledger *queue.Ledger, progress *queue.ProgressCache, publisher notify.Publisher, m *metrics.Metrics, opts DownloadOptions, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		db:        db,
		layout:    layout,
		runner:    runner,
		locker:    locker,
		ledger:    ledger,
		progress:  progress,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		logger:    logger,
	}
}

// Run downloads the video of identifier as job jobID.
// Returns ErrDuplicate when another job holds the identifier,
// ErrLockTimeout when the global download slot never freed up and
// ErrMaxRetriesExceeded when every transfer attempt failed.
func (c *DownloadController) Run(ctx context.Context, identifier, jobID string) (err error) {
	ctx, span := tracer.Start(ctx, "download.Run")
	defer span.End()
	span.SetAttributes(attribute.String("identifier", identifier))

	if jobID == "" {
		jobID = uuid.NewString()
	}
	logger := c.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"job_id":     jobID,
	})
	// cleanup must run even when the job context is cancelled
	cleanupCtx := context.WithoutCancel(ctx)

	// 1. per-identifier task lock
	ok, err := c.locker.TryAcquire(ctx, cache.TaskLockKey(identifier), jobID, c.opts.TaskLockTTL)
	if err != nil {
		return recordSpanError(span, fmt.Errorf("failed to take task lock: %w", err))
	}
	if !ok {
		return recordSpanError(span, fmt.Errorf("download of %s: %w", identifier, models.ErrDuplicate))
	}
	defer func() {
		if err := c.locker.Release(cleanupCtx, cache.TaskLockKey(identifier), jobID); err != nil {
			logger.WithError(err).Warn("Failed to release task lock")
		}
		if err := c.progress.Clear(cleanupCtx, identifier); err != nil {
			logger.WithError(err).Debug("Failed to clear progress")
		}
		c.publishQueueStatus(cleanupCtx)
	}()

	fail := func(cause error) error {
		if err := c.ledger.Remove(cleanupCtx, identifier); err != nil {
			logger.WithError(err).Warn("Failed to clear ledger entry")
		}
		c.publish(cleanupCtx, notify.Event{
			Type:       notify.EventTaskFailed,
			Identifier: identifier,
			JobID:      jobID,
			Error:      cause.Error(),
		})
		logger.WithError(cause).Error("Download failed")
		return recordSpanError(span, cause)
	}

	media, err := c.db.GetMedia(ctx, identifier)
	if err != nil {
		return fail(err)
	}
	if media.MediaLocator == "" {
		return fail(fmt.Errorf("media %s has no locator: %w", identifier, models.ErrNotFound))
	}

	// 2. bounded wait for the global download slot
	waitStart := time.Now()
	if err := c.locker.WaitAcquire(ctx, cache.DownloadLockKey, jobID, c.opts.LockTTL, c.opts.LockWait); err != nil {
		return fail(err)
	}
	c.metrics.LockWait(time.Since(waitStart))
	defer func() {
		if err := c.locker.Release(cleanupCtx, cache.DownloadLockKey, jobID); err != nil {
			logger.WithError(err).Warn("Failed to release download lock")
		}
	}()

	// 3. started
	if err := c.ledger.MarkStarted(ctx, identifier, jobID); err != nil {
		logger.WithError(err).Warn("Failed to mark ledger entry started")
	}
	c.publish(ctx, notify.Event{Type: notify.EventTaskStarted, Identifier: identifier, JobID: jobID})
	logger.Info("Download started")

	// 4. transfer with retries
	start := time.Now()
	throttle := newProgressThrottle(c.opts.ProgressInterval)
	onProgress := func(p transfer.Progress) {
		if !throttle.allow(p) {
			return
		}
		c.reportProgress(ctx, identifier, jobID, p)
	}

	attempt := 0
	var output string
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryDelay), uint64(max(c.opts.MaxRetries, 0))),
		ctx,
	)
	transferErr := backoff.RetryNotify(func() error {
		attempt++
		out, err := c.runner.Run(ctx, media.MediaLocator, c.layout.VideosDir(), identifier, onProgress)
		if err != nil {
			return err
		}
		output = out
		return nil
	}, policy, func(err error, next time.Duration) {
		logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"retry":   next,
			"error":   err,
		}).Warn("Transfer attempt failed")
	})

	// 5. outcome
	if transferErr != nil {
		if err := c.db.UpdateFileState(cleanupCtx, identifier, false, nil, nil); err != nil {
			logger.WithError(err).Warn("Failed to record missing file")
		}
		if errors.Is(transferErr, context.Canceled) || errors.Is(transferErr, context.DeadlineExceeded) {
			return fail(transferErr)
		}
		return fail(fmt.Errorf("download of %s after %d attempts: %v: %w", identifier, attempt, transferErr, models.ErrMaxRetriesExceeded))
	}

	size, exists := storage.FileSize(output)
	now := time.Now().UTC()
	var sizePtr *int64
	if exists {
		sizePtr = &size
	}
	if err := c.db.UpdateFileState(cleanupCtx, identifier, exists, sizePtr, &now); err != nil {
		logger.WithError(err).Error("Failed to record downloaded file")
	}
	if err := c.ledger.Remove(cleanupCtx, identifier); err != nil {
		logger.WithError(err).Warn("Failed to clear ledger entry")
	}
	c.metrics.DownloadDuration(time.Since(start))
	c.publish(cleanupCtx, notify.Event{Type: notify.EventTaskCompleted, Identifier: identifier, JobID: jobID, Percent: 100})

	logger.WithFields(logrus.Fields{
		"size":     size,
		"attempts": attempt,
		"duration": time.Since(start).Round(time.Second),
	}).Info("Download completed")

	return nil
}

func (c *DownloadController) reportProgress(ctx context.Context, identifier, jobID string, p transfer.Progress) {
	if err := c.progress.Set(ctx, identifier, p); err != nil {
		c.logger.WithError(err).Debug("Failed to cache progress")
	}
	if err := c.ledger.SetProgress(ctx, identifier, p); err != nil {
		c.logger.WithError(err).Debug("Failed to record progress")
	}
	c.publish(ctx, notify.Event{
		Type:       notify.EventProgressUpdate,
		Identifier: identifier,
		JobID:      jobID,
		Percent:    p.Percent,
		Speed:      p.Speed,
		ETA:        p.ETA,
	})
}

func (c *DownloadController) publishQueueStatus(ctx context.Context) {
	snap, err := c.ledger.Snapshot(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to snapshot queue")
		return
	}
	c.publish(ctx, notify.Event{Type: notify.EventQueueStatus, Queue: snap})
}

func (c *DownloadController) publish(ctx context.Context, event notify.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.WithError(err).WithField("event", event.Type).Debug("Failed to publish event")
	}
}

// progressThrottle lets one update through per interval; completion always passes
type progressThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	done     bool
}

func newProgressThrottle(interval time.Duration) *progressThrottle {
	return &progressThrottle{interval: interval}
}

func (t *progressThrottle) allow(p transfer.Progress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if p.Percent >= 100 {
		if t.done {
			return false
		}
		t.done = true
		t.last = now
		return true
	}
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
