package sources

import "github.com/Florenz0707/NASSAV-sub000/internal/models"

// Record is what a content extractor pulls out of a video page.
// Only Locator is required.
type Record struct {
	Identifier      string
	Title           string
	Locator         string // HLS playlist URL
	ReleaseDate     string
	DurationSeconds int
	Actors          []models.ActorInput
	Genres          []string
	CoverURL        string

	// Raw keeps the scraped values as found, for the audit blob
	Raw map[string]any
}
