package models

import (
	"strings"
	"time"
)

// MediaRecord is the canonical catalogue entry for one identifier
type MediaRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Identifier string `gorm:"size:64;uniqueIndex;not null" json:"identifier"` // always upper-case

	// Titles from three independent places
	SourceTitle       string            `gorm:"size:1000" json:"source_title"` // starts with Identifier
	EnrichedTitle     string            `gorm:"size:1000" json:"enriched_title"`
	TranslatedTitle   *string           `gorm:"size:1000" json:"translated_title"`
	TranslationStatus TranslationStatus `gorm:"size:16;index;default:'pending'" json:"translation_status"`
	// Last translation status change; nil for records never touched by the translator
	TranslationUpdatedAt *time.Time `json:"-"`

	SourceName      string `gorm:"size:32" json:"source_name"`
	ReleaseDate     string `gorm:"size:32" json:"release_date"`
	DurationSeconds int    `gorm:"default:0" json:"duration_seconds"`
	MediaLocator    string `gorm:"size:2000" json:"media_locator"`
	CoverFilename   string `gorm:"size:255" json:"cover_filename"`

	// File ledger
	FileExists    bool   `gorm:"default:false;index" json:"file_exists"`
	FileSizeBytes *int64 `json:"file_size_bytes"`

	// Raw scraped fields, kept as an audit trail only
	Extra string `gorm:"type:text" json:"-"`

	MetadataCreatedAt time.Time  `json:"metadata_created_at"`
	MetadataUpdatedAt time.Time  `json:"metadata_updated_at"`
	VideoSavedAt      *time.Time `json:"video_saved_at"`
	CreatedAt         time.Time  `json:"created_at"`

	Actors []Actor `gorm:"many2many:media_actors;" json:"actors,omitempty"`
	Genres []Genre `gorm:"many2many:media_genres;" json:"genres,omitempty"`
}

// TitleForTranslation returns the title the translator should work on.
// A source title that is only the identifier has nothing to translate.
func (m *MediaRecord) TitleForTranslation() string {
	if m.EnrichedTitle != "" {
		return m.EnrichedTitle
	}
	if strings.EqualFold(strings.TrimSpace(m.SourceTitle), m.Identifier) {
		return ""
	}
	return m.SourceTitle
}

// metadataColumns are the only columns a metadata refresh may write
var metadataColumns = []string{
	"source_title",
	"enriched_title",
	"source_name",
	"release_date",
	"duration_seconds",
	"media_locator",
	"cover_filename",
	"extra",
	"metadata_updated_at",
}
