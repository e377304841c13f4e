package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm connection
type Database struct {
	db *gorm.DB
}

// NewDatabase opens the sqlite database at path and migrates the schema
func NewDatabase(path string) (*Database, error) {
	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&MediaRecord{}, &Actor{}, &Genre{}, &SourceCookie{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Media operations

// GetMedia retrieves a media record with its actors and genres.
// Returns ErrNotFound when the identifier is unknown.
func (d *Database) GetMedia(ctx context.Context, identifier string) (*MediaRecord, error) {
	var media MediaRecord
	err := d.db.WithContext(ctx).
		Preload("Actors").
		Preload("Genres").
		Where("identifier = ?", identifier).
		First(&media).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("media %s: %w", identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media %s: %w", identifier, err)
	}
	return &media, nil
}

// MediaExists reports whether a record exists for identifier
func (d *Database) MediaExists(ctx context.Context, identifier string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&MediaRecord{}).
		Where("identifier = ?", identifier).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check media %s: %w", identifier, err)
	}
	return count > 0, nil
}

// CreateMedia inserts a new record and its actor/genre sets in one transaction.
// Returns ErrConflict if the identifier already exists.
func (d *Database) CreateMedia(ctx context.Context, media *MediaRecord, actors []ActorInput, genres []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&MediaRecord{}).Where("identifier = ?", media.Identifier).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("media %s: %w", media.Identifier, ErrConflict)
		}

		now := time.Now()
		media.CreatedAt = now
		media.MetadataCreatedAt = now
		media.MetadataUpdatedAt = now
		if err := tx.Omit(clause.Associations).Create(media).Error; err != nil {
			return fmt.Errorf("failed to create media: %w", err)
		}

		return replaceAssociations(tx, media, actors, genres)
	})
}

// UpdateMediaMetadata rewrites only the metadata columns of an existing record
// and replaces its actor/genre sets. File and translation fields are untouched.
func (d *Database) UpdateMediaMetadata(ctx context.Context, media *MediaRecord, actors []ActorInput, genres []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		media.MetadataUpdatedAt = time.Now()
		result := tx.Model(&MediaRecord{}).
			Where("identifier = ?", media.Identifier).
			Select(metadataColumns).
			Updates(media)
		if result.Error != nil {
			return fmt.Errorf("failed to update media: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("media %s: %w", media.Identifier, ErrNotFound)
		}

		var existing MediaRecord
		if err := tx.Where("identifier = ?", media.Identifier).First(&existing).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, &existing, actors, genres)
	})
}

// replaceAssociations swaps the actor and genre sets of media for the given ones
func replaceAssociations(tx *gorm.DB, media *MediaRecord, actorInputs []ActorInput, genreNames []string) error {
	actors := make([]Actor, 0, len(actorInputs))
	seenActors := make(map[string]bool)
	for _, in := range actorInputs {
		if in.Name == "" || seenActors[in.Name] {
			continue
		}
		seenActors[in.Name] = true

		var actor Actor
		if err := tx.Where("name = ?", in.Name).
			Attrs(Actor{AvatarURL: in.AvatarURL}).
			FirstOrCreate(&actor, Actor{Name: in.Name}).Error; err != nil {
			return fmt.Errorf("failed to upsert actor %s: %w", in.Name, err)
		}
		if actor.AvatarURL == "" && in.AvatarURL != "" {
			if err := tx.Model(&actor).Update("avatar_url", in.AvatarURL).Error; err != nil {
				return fmt.Errorf("failed to update actor avatar url: %w", err)
			}
		}
		actors = append(actors, actor)
	}

	genres := make([]Genre, 0, len(genreNames))
	seenGenres := make(map[string]bool)
	for _, name := range genreNames {
		if name == "" || seenGenres[name] {
			continue
		}
		seenGenres[name] = true

		var genre Genre
		if err := tx.Where("name = ?", name).FirstOrCreate(&genre, Genre{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to upsert genre %s: %w", name, err)
		}
		genres = append(genres, genre)
	}

	if err := replaceAssociation(tx, media, "Actors", actors); err != nil {
		return err
	}
	return replaceAssociation(tx, media, "Genres", genres)
}

func replaceAssociation[T any](tx *gorm.DB, media *MediaRecord, name string, values []T) error {
	assoc := tx.Model(media).Association(name)
	var err error
	if len(values) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(values)
	}
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// UpdateFileState writes the file ledger fields of a record
func (d *Database) UpdateFileState(ctx context.Context, identifier string, exists bool, size *int64, savedAt *time.Time) error {
	result := d.db.WithContext(ctx).Model(&MediaRecord{}).
		Where("identifier = ?", identifier).
		Updates(map[string]interface{}{
			"file_exists":     exists,
			"file_size_bytes": size,
			"video_saved_at":  savedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update file state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("media %s: %w", identifier, ErrNotFound)
	}
	return nil
}

// UpdateTranslation writes the translation status and, when non-nil, the translated title
func (d *Database) UpdateTranslation(ctx context.Context, identifier string, status TranslationStatus, title *string) error {
	updates := map[string]interface{}{
		"translation_status":     status,
		"translation_updated_at": time.Now(),
	}
	if title != nil {
		updates["translated_title"] = *title
	}
	result := d.db.WithContext(ctx).Model(&MediaRecord{}).
		Where("identifier = ?", identifier).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update translation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("media %s: %w", identifier, ErrNotFound)
	}
	return nil
}

// UpdateCoverFilename writes the cover filename of a record ("" clears it)
func (d *Database) UpdateCoverFilename(ctx context.Context, identifier, filename string) error {
	return d.db.WithContext(ctx).Model(&MediaRecord{}).
		Where("identifier = ?", identifier).
		Update("cover_filename", filename).Error
}

// DeleteMedia removes a record and its join rows.
// Returns ErrNotFound when the identifier is unknown.
func (d *Database) DeleteMedia(ctx context.Context, identifier string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var media MediaRecord
		err := tx.Where("identifier = ?", identifier).First(&media).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("media %s: %w", identifier, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return tx.Select("Actors", "Genres").Delete(&media).Error
	})
}

// ListMedia retrieves records ordered by id; limit <= 0 means no limit
func (d *Database) ListMedia(ctx context.Context, limit int) ([]*MediaRecord, error) {
	var medias []*MediaRecord
	query := d.db.WithContext(ctx).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&medias).Error
	return medias, err
}

// ListMediaByTranslationStatus retrieves records in any of the given translation states
func (d *Database) ListMediaByTranslationStatus(ctx context.Context, statuses []TranslationStatus, limit int) ([]*MediaRecord, error) {
	var medias []*MediaRecord
	query := d.db.WithContext(ctx).Where("translation_status IN ?", statuses).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&medias).Error
	return medias, err
}

// ListStaleTranslating returns records left in the translating state since
// before the given time, oldest first
func (d *Database) ListStaleTranslating(ctx context.Context, before time.Time, limit int) ([]*MediaRecord, error) {
	var medias []*MediaRecord
	query := d.db.WithContext(ctx).
		Where("translation_status = ?", TranslationTranslating).
		Where("translation_updated_at IS NULL OR translation_updated_at < ?", before).
		Order("translation_updated_at").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&medias).Error
	return medias, err
}

// CountByTranslationStatus returns record counts grouped by translation status
func (d *Database) CountByTranslationStatus(ctx context.Context) (map[TranslationStatus]int64, error) {
	var rows []struct {
		TranslationStatus TranslationStatus
		Count             int64
	}
	err := d.db.WithContext(ctx).Model(&MediaRecord{}).
		Select("translation_status, count(*) as count").
		Group("translation_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[TranslationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.TranslationStatus] = row.Count
	}
	return counts, nil
}

// Actor operations

// ListActors retrieves every actor
func (d *Database) ListActors(ctx context.Context) ([]*Actor, error) {
	var actors []*Actor
	err := d.db.WithContext(ctx).Order("id").Find(&actors).Error
	return actors, err
}

// UpdateActorAvatar writes the avatar filename of an actor
func (d *Database) UpdateActorAvatar(ctx context.Context, actorID uint, filename string) error {
	return d.db.WithContext(ctx).Model(&Actor{}).
		Where("id = ?", actorID).
		Update("avatar_filename", filename).Error
}

// Source cookie operations

// LoadSourceCookies returns the persisted cookie of every source
func (d *Database) LoadSourceCookies(ctx context.Context) (map[string]string, error) {
	var cookies []SourceCookie
	if err := d.db.WithContext(ctx).Find(&cookies).Error; err != nil {
		return nil, fmt.Errorf("failed to load source cookies: %w", err)
	}

	result := make(map[string]string, len(cookies))
	for _, c := range cookies {
		result[c.SourceName] = c.Cookie
	}
	return result, nil
}

// SaveSourceCookie upserts the cookie of one source
func (d *Database) SaveSourceCookie(ctx context.Context, sourceName, cookie string) error {
	record := SourceCookie{SourceName: sourceName, Cookie: cookie, UpdatedAt: time.Now()}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"cookie", "updated_at"}),
	}).Create(&record).Error
}
