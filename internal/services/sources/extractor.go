package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// Extractor fetches and parses video pages of one content site
type Extractor interface {
	Name() string
	Domain() string
	FetchDocument(ctx context.Context, identifier string) (string, Outcome)
	// Parse returns nil when the page carries no usable record
	Parse(doc, identifier string) *Record
}

// CookieSetter is implemented by extractors that send a session cookie
type CookieSetter interface {
	SetCookie(cookie string)
}

// SafeParse runs ex.Parse, turning a panic into a nil record
func SafeParse(ex Extractor, doc, identifier string) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("parser %s panicked: %v", ex.Name(), r)
		}
	}()
	return ex.Parse(doc, identifier), nil
}

var m3u8Regex = regexp.MustCompile(`https?:\\?/\\?/[^"'\s<>]+?\.m3u8[^"'\s<>]*`)

// findM3U8 returns the first playlist URL in s, preferring one named playlist.m3u8
func findM3U8(s string) string {
	matches := m3u8Regex.FindAllString(s, -1)
	if len(matches) == 0 {
		return ""
	}
	best := matches[0]
	for _, m := range matches {
		if strings.Contains(m, "playlist.m3u8") {
			best = m
			break
		}
	}
	return strings.ReplaceAll(best, `\/`, "/")
}

func parseHTML(doc string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(doc))
}

func metaContent(doc *goquery.Document, property string) string {
	v, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return strings.TrimSpace(v)
}

func metaContents(doc *goquery.Document, property string) []string {
	var out []string
	doc.Find(`meta[property="` + property + `"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}

func texts(sel *goquery.Selection) []string {
	var out []string
	seen := make(map[string]bool)
	sel.Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	})
	return out
}

func actorInputs(names []string) []models.ActorInput {
	actors := make([]models.ActorInput, 0, len(names))
	for _, n := range names {
		actors = append(actors, models.ActorInput{Name: n})
	}
	return actors
}

// rawFields records the scraped values next to the parsed record
func rawFields(r *Record) map[string]any {
	return map[string]any{
		"title":        r.Title,
		"locator":      r.Locator,
		"release_date": r.ReleaseDate,
		"duration":     r.DurationSeconds,
		"cover_url":    r.CoverURL,
		"genres":       r.Genres,
	}
}
