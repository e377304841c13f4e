package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/sirupsen/logrus"
)

// TitleResolver turns titles into the target language
type TitleResolver interface {
	Translate(ctx context.Context, text string) (string, bool)
	BatchTranslate(ctx context.Context, texts []string) []*string
}

// staleTranslationAfter is how long a record may sit in the translating
// state before a sweep assumes its worker died. Longer than the task timeout.
const staleTranslationAfter = 30 * time.Minute

// TranslationController fills in translated titles
type TranslationController struct {
	db         *models.Database
	translator TitleResolver
	logger     *logrus.Logger
	now        func() time.Time
}

// NewTranslationController creates a new translation controller
func NewTranslationController(db *models.Database, translator TitleResolver, logger *logrus.Logger) *TranslationController {
	return &TranslationController{
		db:         db,
		translator: translator,
		logger:     logger,
		now:        time.Now,
	}
}

// TranslateRecord translates the title of one record. Completed records are
// left alone; a record without any title is marked skipped.
func (c *TranslationController) TranslateRecord(ctx context.Context, identifier string) error {
	media, err := c.db.GetMedia(ctx, identifier)
	if err != nil {
		return err
	}

	if media.TranslationStatus == models.TranslationCompleted {
		return nil
	}

	title := media.TitleForTranslation()
	if title == "" {
		return c.db.UpdateTranslation(ctx, identifier, models.TranslationSkipped, nil)
	}

	if err := c.db.UpdateTranslation(ctx, identifier, models.TranslationTranslating, nil); err != nil {
		return err
	}

	translated, ok := c.translator.Translate(ctx, title)
	if !ok {
		if err := c.db.UpdateTranslation(context.WithoutCancel(ctx), identifier, models.TranslationFailed, nil); err != nil {
			c.logger.WithError(err).Warn("Failed to mark translation failed")
		}
		return fmt.Errorf("no translator produced a title for %s", identifier)
	}

	if err := c.db.UpdateTranslation(ctx, identifier, models.TranslationCompleted, &translated); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"translated": translated,
	}).Info("Title translated")
	return nil
}

// TranslatePending translates up to limit pending or failed records in one
// batch and returns how many were completed. Records stuck in translating
// for longer than staleTranslationAfter are taken over as well.
func (c *TranslationController) TranslatePending(ctx context.Context, limit int) (int, error) {
	medias, err := c.db.ListMediaByTranslationStatus(ctx,
		[]models.TranslationStatus{models.TranslationPending, models.TranslationFailed}, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list untranslated media: %w", err)
	}

	if limit <= 0 || len(medias) < limit {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(medias)
		}
		stale, err := c.db.ListStaleTranslating(ctx, c.now().Add(-staleTranslationAfter), remaining)
		if err != nil {
			return 0, fmt.Errorf("failed to list stale translations: %w", err)
		}
		if len(stale) > 0 {
			c.logger.WithField("count", len(stale)).Warn("Taking over stale translations")
		}
		medias = append(medias, stale...)
	}
	if len(medias) == 0 {
		return 0, nil
	}

	c.logger.WithField("count", len(medias)).Info("Translating pending titles")

	var batch []*models.MediaRecord
	var titles []string
	for _, m := range medias {
		title := m.TitleForTranslation()
		if title == "" {
			if err := c.db.UpdateTranslation(ctx, m.Identifier, models.TranslationSkipped, nil); err != nil {
				c.logger.WithError(err).Warn("Failed to mark translation skipped")
			}
			continue
		}
		batch = append(batch, m)
		titles = append(titles, title)
	}

	results := c.translator.BatchTranslate(ctx, titles)

	completed := 0
	for i, m := range batch {
		status := models.TranslationFailed
		if results[i] != nil {
			status = models.TranslationCompleted
		}
		if err := c.db.UpdateTranslation(ctx, m.Identifier, status, results[i]); err != nil {
			c.logger.WithError(err).WithField("identifier", m.Identifier).Warn("Failed to store translation")
			continue
		}
		if status == models.TranslationCompleted {
			completed++
		}
	}

	c.logger.WithFields(logrus.Fields{
		"completed": completed,
		"failed":    len(batch) - completed,
	}).Info("Translation sweep finished")
	return completed, nil
}
