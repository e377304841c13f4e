package enrichment

import (
	"context"
	"fmt"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
)

// Metadata is what an enrichment site knows about an identifier.
// It never carries a media locator.
type Metadata struct {
	Title           string
	ReleaseDate     string
	DurationSeconds int
	Actors          []models.ActorInput
	Genres          []string
	CoverURL        string
	Studio          string
	Label           string
	Series          string
	SourceName      string
}

// Empty reports whether m carries nothing worth keeping
func (m *Metadata) Empty() bool {
	return m == nil || (m.Title == "" && m.CoverURL == "" && len(m.Actors) == 0 && len(m.Genres) == 0 && m.ReleaseDate == "")
}

// Enricher fetches and parses pages of one enrichment site
type Enricher interface {
	Name() string
	Domain() string
	FetchDocument(ctx context.Context, identifier string) (string, sources.Outcome)
	Parse(doc, identifier string) *Metadata
}

func safeParse(e Enricher, doc, identifier string) (md *Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			md = nil
			err = fmt.Errorf("enricher %s panicked: %v", e.Name(), r)
		}
	}()
	return e.Parse(doc, identifier), nil
}
