package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const translationSweepLimit = 50

// advisoryChecks run without applying fixes
var advisoryChecks = []string{controllers.CheckFiles, controllers.CheckCovers, controllers.CheckOrphans}

// LedgerPruner removes queue entries left behind by crashed workers
type LedgerPruner interface {
	PruneStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron              *cron.Cron
	reconciler        *controllers.Reconciler
	translationCtrl   *controllers.TranslationController
	pruner            LedgerPruner
	reconcileSchedule string
	staleAfter        time.Duration
	logger            *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(
	reconciler *controllers.Reconciler,
	translationCtrl *controllers.TranslationController,
	pruner LedgerPruner,
	reconcileSchedule string,
	staleAfter time.Duration,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:              cron.New(),
		reconciler:        reconciler,
		translationCtrl:   translationCtrl,
		pruner:            pruner,
		reconcileSchedule: reconcileSchedule,
		staleAfter:        staleAfter,
		logger:            logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Reconciliation report, advisory only
	_, err := s.cron.AddFunc(s.reconcileSchedule, func() {
		s.runReconcile()
	})
	if err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	// Every 30 minutes: translate pending titles
	_, err = s.cron.AddFunc("*/30 * * * *", func() {
		s.runTranslationSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to add translation job: %w", err)
	}

	// Every 10 minutes: drop ledger entries of crashed jobs
	_, err = s.cron.AddFunc("*/10 * * * *", func() {
		s.runLedgerPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add ledger prune job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runReconcile() {
	s.logger.Info("Running scheduled reconciliation")
	ctx := context.Background()

	reports, err := s.reconciler.RunAll(ctx, advisoryChecks, controllers.ReconcileOptions{})
	if err != nil {
		s.logger.WithError(err).Error("Reconciliation job failed")
		return
	}
	for _, r := range reports {
		issues := r.Scanned - r.Counts[controllers.CategoryOK]
		if issues > 0 {
			s.logger.WithFields(logrus.Fields{
				"check":  r.Check,
				"issues": issues,
				"counts": r.Counts,
			}).Warn("Reconciliation found inconsistencies")
		}
	}
}

func (s *Scheduler) runTranslationSweep() {
	s.logger.Debug("Running translation sweep")
	ctx := context.Background()

	if _, err := s.translationCtrl.TranslatePending(ctx, translationSweepLimit); err != nil {
		s.logger.WithError(err).Error("Translation sweep failed")
	}
}

func (s *Scheduler) runLedgerPrune() {
	s.logger.Debug("Running ledger prune")
	ctx := context.Background()

	pruned, err := s.pruner.PruneStale(ctx, s.staleAfter)
	if err != nil {
		s.logger.WithError(err).Error("Ledger prune failed")
		return
	}
	if pruned > 0 {
		s.logger.WithField("pruned", pruned).Info("Pruned stale queue entries")
	}
}
