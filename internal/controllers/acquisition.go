package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/enrichment"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/Florenz0707/NASSAV-sub000/internal/controllers")

// JobSubmitter queues background jobs
type JobSubmitter interface {
	SubmitDownload(ctx context.Context, identifier string) (string, error)
	SubmitTranslation(ctx context.Context, identifier string) error
}

// AcquisitionController builds and maintains catalogue records
type AcquisitionController struct {
	db        *models.Database
	registry  *sources.Registry
	enricher  *enrichment.Resolver
	layout    *storage.Layout
	assets    *storage.AssetFetcher
	submitter JobSubmitter
	logger    *logrus.Logger
}

// NewAcquisitionController creates a new acquisition controller
func NewAcquisitionController(db *models.Database, registry *sources.Registry, enricher *enrichment.Resolver, layout *storage.Layout, assets *storage.AssetFetcher, submitter JobSubmitter, logger *logrus.Logger) *AcquisitionController {
	return &AcquisitionController{
		db:        db,
		registry:  registry,
		enricher:  enricher,
		layout:    layout,
		assets:    assets,
		submitter: submitter,
		logger:    logger,
	}
}

// acquired is everything gathered for one identifier before it is written
type acquired struct {
	media  *models.MediaRecord
	actors []models.ActorInput
	genres []string
}

// Add acquires metadata for a new identifier. source is a registered source
// name, or empty/"any" to fall back across all of them.
func (c *AcquisitionController) Add(ctx context.Context, rawIdentifier, source string) (*models.MediaRecord, error) {
	ctx, span := tracer.Start(ctx, "acquisition.Add")
	defer span.End()

	identifier, err := utils.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.String("identifier", identifier), attribute.String("source", source))

	exists, err := c.db.MediaExists(ctx, identifier)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if exists {
		return nil, recordSpanError(span, fmt.Errorf("media %s: %w", identifier, models.ErrConflict))
	}

	c.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"source":     source,
	}).Info("Acquiring media")

	res, err := c.resolve(ctx, identifier, source)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	acq := c.assemble(ctx, identifier, res)
	if acq.media.TitleForTranslation() != "" {
		acq.media.TranslationStatus = models.TranslationPending
	} else {
		acq.media.TranslationStatus = models.TranslationSkipped
	}

	if err := c.db.CreateMedia(ctx, acq.media, acq.actors, acq.genres); err != nil {
		return nil, recordSpanError(span, fmt.Errorf("failed to create media %s: %w", identifier, err))
	}

	c.downloadAvatars(ctx, identifier)

	if acq.media.TranslationStatus == models.TranslationPending {
		c.queueTranslation(ctx, identifier)
	}

	c.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"source":     res.SourceName,
		"title":      acq.media.SourceTitle,
	}).Info("Media acquired")

	return c.db.GetMedia(ctx, identifier)
}

// Refresh re-acquires metadata of an existing record from its original
// source. File state and any existing translation are kept.
func (c *AcquisitionController) Refresh(ctx context.Context, rawIdentifier string) (*models.MediaRecord, error) {
	ctx, span := tracer.Start(ctx, "acquisition.Refresh")
	defer span.End()

	identifier, err := utils.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.String("identifier", identifier))

	existing, err := c.db.GetMedia(ctx, identifier)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	res, err := c.resolve(ctx, identifier, existing.SourceName)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	acq := c.assemble(ctx, identifier, res)
	if acq.media.CoverFilename == "" {
		acq.media.CoverFilename = existing.CoverFilename
	}
	if err := c.db.UpdateMediaMetadata(ctx, acq.media, acq.actors, acq.genres); err != nil {
		return nil, recordSpanError(span, fmt.Errorf("failed to refresh media %s: %w", identifier, err))
	}

	c.downloadAvatars(ctx, identifier)

	if existing.TranslatedTitle == nil && acq.media.TitleForTranslation() != "" &&
		existing.TranslationStatus != models.TranslationTranslating {
		if existing.TranslationStatus != models.TranslationPending {
			if err := c.db.UpdateTranslation(ctx, identifier, models.TranslationPending, nil); err != nil {
				c.logger.WithError(err).Warn("Failed to reset translation status")
			}
		}
		c.queueTranslation(ctx, identifier)
	}

	c.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"source":     res.SourceName,
	}).Info("Media refreshed")

	return c.db.GetMedia(ctx, identifier)
}

// Delete removes a record, and its files when deleteFiles is set.
// Returns the removed file paths.
func (c *AcquisitionController) Delete(ctx context.Context, rawIdentifier string, deleteFiles bool) ([]string, error) {
	ctx, span := tracer.Start(ctx, "acquisition.Delete")
	defer span.End()

	identifier, err := utils.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	media, err := c.db.GetMedia(ctx, identifier)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	if err := c.db.DeleteMedia(ctx, identifier); err != nil {
		return nil, recordSpanError(span, err)
	}

	var removed []string
	if deleteFiles {
		removed, err = c.layout.RemoveMediaFiles(identifier, media.CoverFilename)
		if err != nil {
			c.logger.WithError(err).WithField("identifier", identifier).Warn("Some media files could not be removed")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"identifier":    identifier,
		"files_removed": len(removed),
	}).Info("Media deleted")

	return removed, nil
}

// Get returns the record of identifier, or nil when there is none
func (c *AcquisitionController) Get(ctx context.Context, rawIdentifier string) (*models.MediaRecord, error) {
	identifier, err := utils.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, err
	}
	media, err := c.db.GetMedia(ctx, identifier)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return media, err
}

// List returns up to limit records in insertion order
func (c *AcquisitionController) List(ctx context.Context, limit int) ([]*models.MediaRecord, error) {
	return c.db.ListMedia(ctx, limit)
}

// Download queues a download of an existing record
func (c *AcquisitionController) Download(ctx context.Context, rawIdentifier string) (string, error) {
	identifier, err := utils.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return "", err
	}
	media, err := c.db.GetMedia(ctx, identifier)
	if err != nil {
		return "", err
	}
	if media.MediaLocator == "" {
		return "", fmt.Errorf("media %s has no locator: %w", identifier, models.ErrNotFound)
	}
	return c.submitter.SubmitDownload(ctx, identifier)
}

func (c *AcquisitionController) resolve(ctx context.Context, identifier, source string) (*sources.Resolution, error) {
	if source == "" || source == models.AnySource {
		return c.registry.ResolveFromAny(ctx, identifier)
	}
	return c.registry.ResolveFromSource(ctx, identifier, source)
}

// assemble merges the source record with enrichment metadata and fetches
// the cover. Enrichment wins for date, duration, cast and genres.
func (c *AcquisitionController) assemble(ctx context.Context, identifier string, res *sources.Resolution) *acquired {
	rec := res.Record

	if err := c.layout.SaveDocument(identifier, res.SourceName, res.Document); err != nil {
		c.logger.WithError(err).WithField("identifier", identifier).Warn("Failed to archive source page")
	}

	md := c.enricher.Resolve(ctx, identifier)
	if md == nil {
		md = &enrichment.Metadata{}
	}

	now := time.Now().UTC()
	media := &models.MediaRecord{
		Identifier:        identifier,
		SourceTitle:       utils.NormalizeSourceTitle(identifier, rec.Title),
		EnrichedTitle:     md.Title,
		SourceName:        res.SourceName,
		ReleaseDate:       firstNonEmpty(utils.NormalizeReleaseDate(md.ReleaseDate), utils.NormalizeReleaseDate(rec.ReleaseDate)),
		DurationSeconds:   firstPositive(md.DurationSeconds, rec.DurationSeconds),
		MediaLocator:      rec.Locator,
		Extra:             extraBlob(rec, md),
		MetadataUpdatedAt: now,
	}
	media.CoverFilename = c.downloadCover(ctx, identifier, res, md)

	acq := &acquired{media: media, actors: rec.Actors, genres: rec.Genres}
	if len(md.Actors) > 0 {
		acq.actors = md.Actors
	}
	if len(md.Genres) > 0 {
		acq.genres = md.Genres
	}
	return acq
}

// downloadCover tries the enrichment cover, then the source cover.
// Returns "" when neither could be fetched.
func (c *AcquisitionController) downloadCover(ctx context.Context, identifier string, res *sources.Resolution, md *enrichment.Metadata) string {
	filename := storage.CoverFilename(identifier)
	dest := c.layout.CoverPath(filename)

	candidates := []struct{ url, origin string }{
		{md.CoverURL, md.SourceName},
		{res.Record.CoverURL, res.SourceName},
	}
	for _, cand := range candidates {
		if cand.url == "" {
			continue
		}
		if err := c.assets.Download(ctx, cand.url, refererFor(cand.url), dest); err != nil {
			c.logger.WithFields(logrus.Fields{
				"identifier": identifier,
				"origin":     cand.origin,
				"error":      err,
			}).Warn("Cover download failed")
			continue
		}
		return filename
	}

	c.logger.WithField("identifier", identifier).Warn("No cover could be downloaded")
	return ""
}

// downloadAvatars fetches missing avatars of the record's cast and records
// their filenames. Failures are only logged.
func (c *AcquisitionController) downloadAvatars(ctx context.Context, identifier string) {
	media, err := c.db.GetMedia(ctx, identifier)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load cast for avatars")
		return
	}

	for _, a := range media.Actors {
		if a.AvatarURL == "" {
			continue
		}
		filename := storage.AvatarFilename(a.AvatarURL)
		dest := c.layout.AvatarPath(filename)
		if _, ok := storage.FileSize(dest); !ok {
			if err := c.assets.Download(ctx, a.AvatarURL, refererFor(a.AvatarURL), dest); err != nil {
				c.logger.WithFields(logrus.Fields{
					"identifier": identifier,
					"actor":      a.Name,
					"error":      err,
				}).Debug("Avatar download failed")
				continue
			}
		}
		if a.AvatarFilename != filename {
			if err := c.db.UpdateActorAvatar(ctx, a.ID, filename); err != nil {
				c.logger.WithError(err).WithField("actor", a.Name).Warn("Failed to record avatar")
			}
		}
	}
}

func (c *AcquisitionController) queueTranslation(ctx context.Context, identifier string) {
	if c.submitter == nil {
		return
	}
	if err := c.submitter.SubmitTranslation(ctx, identifier); err != nil {
		c.logger.WithError(err).WithField("identifier", identifier).Warn("Failed to queue translation")
	}
}

func extraBlob(rec *sources.Record, md *enrichment.Metadata) string {
	extra := map[string]any{}
	if len(rec.Raw) > 0 {
		extra["source"] = rec.Raw
	}
	meta := map[string]string{}
	for k, v := range map[string]string{
		"site":   md.SourceName,
		"studio": md.Studio,
		"label":  md.Label,
		"series": md.Series,
	} {
		if v != "" {
			meta[k] = v
		}
	}
	if len(meta) > 0 {
		extra["enrichment"] = meta
	}
	if len(extra) == 0 {
		return ""
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return ""
	}
	return string(data)
}

func refererFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
