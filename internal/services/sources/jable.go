package sources

import (
	"regexp"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/PuerkitoBio/goquery"
)

var hlsURLRegex = regexp.MustCompile(`var\s+hlsUrl\s*=\s*['"]([^'"]+)['"]`)

// Jable exposes the playlist as a plain hlsUrl variable
type Jable struct {
	*Site
}

func NewJable(cfg config.SourceConfig, fetcher *Fetcher) Extractor {
	return &Jable{Site: NewSite(cfg.Name, cfg.Domain, cfg.Cookie, fetcher, "/videos/%s/")}
}

func (j *Jable) Parse(doc, identifier string) *Record {
	var locator string
	if m := hlsURLRegex.FindStringSubmatch(doc); m != nil {
		locator = m[1]
	}
	if locator == "" {
		return nil
	}

	rec := &Record{Identifier: identifier, Locator: locator}
	page, err := parseHTML(doc)
	if err == nil {
		rec.Title = metaContent(page, "og:title")
		rec.CoverURL = metaContent(page, "og:image")
		page.Find(".models a.model").Each(func(_ int, s *goquery.Selection) {
			name, _ := s.Find("span, img").First().Attr("title")
			if name == "" {
				name = s.AttrOr("title", strings.TrimSpace(s.Text()))
			}
			if name = strings.TrimSpace(name); name != "" {
				avatar, _ := s.Find("img").Attr("src")
				rec.Actors = append(rec.Actors, models.ActorInput{Name: name, AvatarURL: avatar})
			}
		})
		rec.Genres = texts(page.Find("h5.tags a"))
		rec.ReleaseDate = utils.NormalizeReleaseDate(strings.TrimPrefix(strings.TrimSpace(page.Find(".info-header .mr-3").First().Text()), "上市於 "))
		if !utils.IsValidReleaseDate(rec.ReleaseDate) {
			rec.ReleaseDate = ""
		}
	}
	rec.Raw = rawFields(rec)
	return rec
}
