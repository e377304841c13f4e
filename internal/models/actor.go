package models

import "time"

// Actor is a cast member shared across media records
type Actor struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	AvatarURL      string `gorm:"size:1000" json:"avatar_url,omitempty"`
	AvatarFilename string `gorm:"size:255" json:"avatar_filename,omitempty"`
}

// Genre is a category label shared across media records
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`
}

// SourceCookie holds the session cookie of one content source
type SourceCookie struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:32;uniqueIndex;not null"`
	Cookie     string `gorm:"type:text"`
	UpdatedAt  time.Time
}

// ActorInput describes a cast member as scraped, before persistence
type ActorInput struct {
	Name      string
	AvatarURL string
}
