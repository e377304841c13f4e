package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/cache"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const submitLockTTL = 30 * time.Second

func submitLockKey(identifier string) string {
	return "nassav:lock:submit:" + identifier
}

// Submitter enqueues jobs, rejecting duplicate downloads
type Submitter struct {
	enqueuer  Enqueuer
	inspector Inspector
	locker    *cache.Locker
	ledger    *Ledger
	logger    *logrus.Logger
}

// NewSubmitter creates a submitter
func NewSubmitter(enqueuer Enqueuer, inspector Inspector, locker *cache.Locker, ledger *Ledger, logger *logrus.Logger) *Submitter {
	return &Submitter{
		enqueuer:  enqueuer,
		inspector: inspector,
		locker:    locker,
		ledger:    ledger,
		logger:    logger,
	}
}

// SubmitDownload enqueues a download of identifier and returns its job id.
// ErrDuplicate is returned while another download of identifier is queued
// or running.
func (s *Submitter) SubmitDownload(ctx context.Context, identifier string) (string, error) {
	jobID := uuid.NewString()

	// Serialise submissions of one identifier across processes
	ok, err := s.locker.TryAcquire(ctx, submitLockKey(identifier), jobID, submitLockTTL)
	if err != nil {
		return "", fmt.Errorf("failed to take submit lock: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("download of %s is being submitted: %w", identifier, models.ErrDuplicate)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), submitLockKey(identifier), jobID); err != nil {
			s.logger.WithError(err).Warn("Failed to release submit lock")
		}
	}()

	if err := s.checkDuplicate(ctx, identifier); err != nil {
		return "", err
	}

	if err := s.ledger.Add(ctx, identifier, jobID, models.JobTypeDownload); err != nil {
		return "", err
	}

	task, err := NewDownloadTask(identifier, jobID)
	if err != nil {
		_ = s.ledger.Remove(ctx, identifier)
		return "", err
	}
	err = s.enqueue(ctx, task, DownloadTaskID(identifier),
		asynq.MaxRetry(0),
		asynq.Timeout(6*time.Hour),
	)
	if err != nil {
		_ = s.ledger.Remove(context.WithoutCancel(ctx), identifier)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return "", fmt.Errorf("download of %s already queued: %w", identifier, models.ErrDuplicate)
		}
		return "", fmt.Errorf("failed to enqueue download: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"job_id":     jobID,
	}).Info("Download queued")

	return jobID, nil
}

func (s *Submitter) checkDuplicate(ctx context.Context, identifier string) error {
	if holder, held, err := s.locker.Holder(ctx, cache.TaskLockKey(identifier)); err != nil {
		return fmt.Errorf("failed to read task lock: %w", err)
	} else if held {
		return fmt.Errorf("download of %s running as %s: %w", identifier, holder, models.ErrDuplicate)
	}

	inFlight, err := s.inspector.InFlight(ctx, TypeDownload, identifier)
	if err != nil {
		return fmt.Errorf("failed to inspect queue: %w", err)
	}
	if inFlight {
		return fmt.Errorf("download of %s already queued: %w", identifier, models.ErrDuplicate)
	}

	if _, exists, err := s.ledger.Get(ctx, identifier); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("download of %s already in ledger: %w", identifier, models.ErrDuplicate)
	}
	return nil
}

// SubmitTranslation enqueues a title translation. A translation already
// queued for identifier is not an error.
func (s *Submitter) SubmitTranslation(ctx context.Context, identifier string) error {
	task, err := NewTranslateTask(identifier)
	if err != nil {
		return err
	}
	err = s.enqueue(ctx, task, TranslateTaskID(identifier),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue translation: %w", err)
	}
	return nil
}

// enqueue submits task under taskID. A conflict with a task that already
// finished frees the id and submits once more.
func (s *Submitter) enqueue(ctx context.Context, task *asynq.Task, taskID string, opts ...asynq.Option) error {
	opts = append([]asynq.Option{asynq.Queue(QueueName), asynq.TaskID(taskID)}, opts...)

	_, err := s.enqueuer.EnqueueContext(ctx, task, opts...)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	reclaimed, rerr := s.inspector.Reclaim(ctx, taskID)
	if rerr != nil {
		return fmt.Errorf("failed to reclaim task %s: %w", taskID, rerr)
	}
	if !reclaimed {
		return err
	}
	s.logger.WithField("task_id", taskID).Info("Reclaimed id of finished task")

	_, err = s.enqueuer.EnqueueContext(ctx, task, opts...)
	return err
}

// PruneStale removes ledger entries older than maxAge that have no running
// job behind them, which is what a crashed worker leaves behind.
func (s *Submitter) PruneStale(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for _, e := range entries {
		if e.UpdatedAt.After(cutoff) {
			continue
		}
		if _, held, err := s.locker.Holder(ctx, cache.TaskLockKey(e.Identifier)); err != nil || held {
			continue
		}
		if inFlight, err := s.inspector.InFlight(ctx, TypeDownload, e.Identifier); err != nil || inFlight {
			continue
		}
		if err := s.ledger.Remove(ctx, e.Identifier); err != nil {
			return pruned, err
		}
		pruned++
		s.logger.WithFields(logrus.Fields{
			"identifier": e.Identifier,
			"job_id":     e.JobID,
			"state":      e.State,
		}).Warn("Pruned stale ledger entry")
	}
	return pruned, nil
}
