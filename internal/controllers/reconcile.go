package controllers

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/sirupsen/logrus"
)

// Reconciliation checks
const (
	CheckFiles      = "files"
	CheckCovers     = "covers"
	CheckThumbnails = "thumbnails"
	CheckAvatars    = "avatars"
	CheckActorNames = "actor_names"
	CheckOrphans    = "orphans"
)

// Report categories
const (
	CategoryOK               = "ok"
	CategoryMissingFile      = "missing_file"
	CategoryUntrackedFile    = "untracked_file"
	CategorySizeMismatch     = "size_mismatch"
	CategoryMissingCover     = "missing_cover"
	CategoryUntrackedCover   = "untracked_cover"
	CategoryMissingThumbnail = "missing_thumbnail"
	CategoryGenerated        = "generated"
	CategoryMissingAvatar    = "missing_avatar"
	CategoryDownloaded       = "downloaded"
	CategoryNoURL            = "no_url"
	CategoryTruncated        = "truncated"
	CategoryOrphanCover      = "orphan_cover"
	CategoryOrphanVideo      = "orphan_video"
)

const maxSamples = 20

// ReconcileOptions controls one reconciliation run
type ReconcileOptions struct {
	Apply bool // without Apply nothing is changed
	Limit int  // records scanned, 0 for all
}

// Sample is one example finding of a report
type Sample struct {
	Subject  string `json:"subject"`
	Category string `json:"category"`
	Detail   string `json:"detail,omitempty"`
}

// Report is the outcome of one check
type Report struct {
	Check   string         `json:"check"`
	Scanned int            `json:"scanned"`
	Counts  map[string]int `json:"counts"`
	Fixed   int            `json:"fixed"`
	Samples []Sample       `json:"samples"`
}

func newReport(check string) *Report {
	return &Report{Check: check, Counts: make(map[string]int)}
}

func (r *Report) add(subject, category, detail string) {
	r.Counts[category]++
	if category == CategoryOK || len(r.Samples) >= maxSamples {
		return
	}
	r.Samples = append(r.Samples, Sample{Subject: subject, Category: category, Detail: detail})
}

// Reconciler compares the database with the files on disk
type Reconciler struct {
	db     *models.Database
	layout *storage.Layout
	assets *storage.AssetFetcher
	logger *logrus.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(db *models.Database, layout *storage.Layout, assets *storage.AssetFetcher, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		db:     db,
		layout: layout,
		assets: assets,
		logger: logger,
	}
}

// Checks lists every check name in run order
func (r *Reconciler) Checks() []string {
	return []string{CheckFiles, CheckCovers, CheckThumbnails, CheckAvatars, CheckActorNames, CheckOrphans}
}

// Run executes the named check
func (r *Reconciler) Run(ctx context.Context, check string, opts ReconcileOptions) (*Report, error) {
	var run func(context.Context, ReconcileOptions) (*Report, error)
	switch check {
	case CheckFiles:
		run = r.CheckFiles
	case CheckCovers:
		run = r.CheckCovers
	case CheckThumbnails:
		run = r.CheckThumbnails
	case CheckAvatars:
		run = r.CheckAvatars
	case CheckActorNames:
		run = r.CheckActorNames
	case CheckOrphans:
		run = r.CheckOrphans
	default:
		return nil, fmt.Errorf("unknown check %q", check)
	}

	report, err := run(ctx, opts)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"check":   check,
		"scanned": report.Scanned,
		"fixed":   report.Fixed,
		"apply":   opts.Apply,
		"counts":  report.Counts,
	}).Info("Reconciliation check finished")
	return report, nil
}

// CheckFiles compares each record's file fields with the video on disk
func (r *Reconciler) CheckFiles(ctx context.Context, opts ReconcileOptions) (*Report, error) {
	report := newReport(CheckFiles)
	medias, err := r.db.ListMedia(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	for _, m := range medias {
		report.Scanned++
		info, statErr := os.Stat(r.layout.VideoPath(m.Identifier))
		onDisk := statErr == nil && !info.IsDir()

		switch {
		case m.FileExists && !onDisk:
			report.add(m.Identifier, CategoryMissingFile, "")
			if opts.Apply {
				r.fix(report, m.Identifier, r.db.UpdateFileState(ctx, m.Identifier, false, nil, nil))
			}
		case !m.FileExists && onDisk:
			size := info.Size()
			report.add(m.Identifier, CategoryUntrackedFile, fmt.Sprintf("%d bytes", size))
			if opts.Apply {
				savedAt := info.ModTime().UTC()
				r.fix(report, m.Identifier, r.db.UpdateFileState(ctx, m.Identifier, true, &size, &savedAt))
			}
		case m.FileExists && onDisk && (m.FileSizeBytes == nil || *m.FileSizeBytes != info.Size()):
			size := info.Size()
			recorded := "unset"
			if m.FileSizeBytes != nil {
				recorded = fmt.Sprintf("%d", *m.FileSizeBytes)
			}
			report.add(m.Identifier, CategorySizeMismatch, fmt.Sprintf("recorded %s, on disk %d", recorded, size))
			if opts.Apply {
				r.fix(report, m.Identifier, r.db.UpdateFileState(ctx, m.Identifier, true, &size, m.VideoSavedAt))
			}
		default:
			report.add(m.Identifier, CategoryOK, "")
		}
	}
	return report, nil
}

// CheckCovers compares each record's cover filename with the covers on disk.
// Records with neither a filename nor a file count as missing and have no fix.
func (r *Reconciler) CheckCovers(ctx context.Context, opts ReconcileOptions) (*Report, error) {
	report := newReport(CheckCovers)
	medias, err := r.db.ListMedia(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	for _, m := range medias {
		report.Scanned++
		expected := storage.CoverFilename(m.Identifier)

		if m.CoverFilename != "" {
			if _, ok := storage.FileSize(r.layout.CoverPath(m.CoverFilename)); ok {
				report.add(m.Identifier, CategoryOK, "")
				continue
			}
			report.add(m.Identifier, CategoryMissingCover, m.CoverFilename)
			if opts.Apply {
				r.fix(report, m.Identifier, r.db.UpdateCoverFilename(ctx, m.Identifier, ""))
			}
			continue
		}

		if _, ok := storage.FileSize(r.layout.CoverPath(expected)); ok {
			report.add(m.Identifier, CategoryUntrackedCover, expected)
			if opts.Apply {
				r.fix(report, m.Identifier, r.db.UpdateCoverFilename(ctx, m.Identifier, expected))
			}
			continue
		}
		report.add(m.Identifier, CategoryMissingCover, "")
	}
	return report, nil
}

// CheckThumbnails finds covers without a thumbnail and, with Apply,
// generates them. Generation only ever adds files.
func (r *Reconciler) CheckThumbnails(ctx context.Context, opts ReconcileOptions) (*Report, error) {
	report := newReport(CheckThumbnails)
	medias, err := r.db.ListMedia(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	for _, m := range medias {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.CoverFilename == "" {
			continue
		}
		cover := r.layout.CoverPath(m.CoverFilename)
		if _, ok := storage.FileSize(cover); !ok {
			continue
		}
		report.Scanned++

		thumb := r.layout.ThumbnailPath(m.Identifier)
		if _, ok := storage.FileSize(thumb); ok {
			report.add(m.Identifier, CategoryOK, "")
			continue
		}
		if !opts.Apply {
			report.add(m.Identifier, CategoryMissingThumbnail, "")
			continue
		}
		if err := storage.GenerateThumbnail(cover, thumb, storage.ThumbnailWidth); err != nil {
			report.add(m.Identifier, CategoryMissingThumbnail, err.Error())
			continue
		}
		report.add(m.Identifier, CategoryGenerated, "")
		report.Fixed++
	}
	return report, nil
}

// CheckAvatars finds actors whose avatar is not on disk and, with Apply,
// downloads it
func (r *Reconciler) CheckAvatars(ctx context.Context, opts ReconcileOptions) (*Report, error) {
	report := newReport(CheckAvatars)
	actors, err := r.db.ListActors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}

	for i, a := range actors {
		if opts.Limit > 0 && i >= opts.Limit {
			break
		}
		report.Scanned++

		if a.AvatarURL == "" {
			report.add(a.Name, CategoryNoURL, "")
			continue
		}

		filename := a.AvatarFilename
		if filename == "" {
			filename = storage.AvatarFilename(a.AvatarURL)
		}
		dest := r.layout.AvatarPath(filename)

		if _, ok := storage.FileSize(dest); ok {
			report.add(a.Name, CategoryOK, "")
			if opts.Apply && a.AvatarFilename == "" {
				r.fix(report, a.Name, r.db.UpdateActorAvatar(ctx, a.ID, filename))
			}
			continue
		}

		if !opts.Apply {
			report.add(a.Name, CategoryMissingAvatar, a.AvatarURL)
			continue
		}
		if err := r.assets.Download(ctx, a.AvatarURL, refererFor(a.AvatarURL), dest); err != nil {
			report.add(a.Name, CategoryMissingAvatar, err.Error())
			continue
		}
		report.add(a.Name, CategoryDownloaded, filename)
		r.fix(report, a.Name, r.db.UpdateActorAvatar(ctx, a.ID, filename))
	}
	return report, nil
}

// CheckActorNames reports actors whose name is a strict prefix of another
// actor's name, the usual sign of a truncated scrape. Detection only.
func (r *Reconciler) CheckActorNames(ctx context.Context, opts ReconcileOptions) (*Report, error) {
	report := newReport(CheckActorNames)
	actors, err := r.db.ListActors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}

	names := make([]string, 0, len(actors))
	for _, a := range actors {
		names = append(names, a.Name)
	}
	sort.Strings(names)

	for i, name := range names {
		if opts.Limit > 0 && i >= opts.Limit {
			break
		}
		report.Scanned++
		// in sorted order every extension of name directly follows it
		if i+1 < len(names) && len(names[i+1]) > len(name) && strings.HasPrefix(names[i+1], name) {
			report.add(name, CategoryTruncated, "prefix of "+names[i+1])
			continue
		}
		report.add(name, CategoryOK, "")
	}
	return report, nil
}

// CheckOrphans reports videos and covers on disk that belong to no record.
// Detection only.
func (r *Reconciler) CheckOrphans(ctx context.Context, opts ReconcileOptions) (*Report, error) {
	report := newReport(CheckOrphans)
	medias, err := r.db.ListMedia(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	known := make(map[string]bool, len(medias))
	for _, m := range medias {
		known[m.Identifier] = true
	}

	videos, err := r.layout.ListVideos()
	if err != nil {
		return nil, err
	}
	covers, err := r.layout.ListCovers()
	if err != nil {
		return nil, err
	}

	scan := func(stems []string, category string) {
		for _, stem := range stems {
			if opts.Limit > 0 && report.Scanned >= opts.Limit {
				return
			}
			report.Scanned++
			if known[strings.ToUpper(stem)] {
				report.add(stem, CategoryOK, "")
				continue
			}
			report.add(stem, category, "")
		}
	}
	scan(videos, CategoryOrphanVideo)
	scan(covers, CategoryOrphanCover)
	return report, nil
}

// fix counts a successful repair and logs a failed one
func (r *Reconciler) fix(report *Report, subject string, err error) {
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"check":   report.Check,
			"subject": subject,
		}).Warn("Reconciliation fix failed")
		return
	}
	report.Fixed++
}

// RunAll executes every check in order
func (r *Reconciler) RunAll(ctx context.Context, checks []string, opts ReconcileOptions) ([]*Report, error) {
	if len(checks) == 0 {
		checks = r.Checks()
	}
	start := time.Now()
	reports := make([]*Report, 0, len(checks))
	for _, check := range checks {
		report, err := r.Run(ctx, check, opts)
		if err != nil {
			return reports, fmt.Errorf("check %s: %w", check, err)
		}
		reports = append(reports, report)
	}
	r.logger.WithField("duration", time.Since(start).Round(time.Millisecond)).Info("Reconciliation finished")
	return reports, nil
}
