package sources

import (
	"regexp"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
)

var videoSrcRegex = regexp.MustCompile(`(?:videoSrc|source)\s*[:=]\s*['"]([^'"]+\.m3u8[^'"]*)['"]`)

// Hohoj embeds the playlist in its player setup script
type Hohoj struct {
	*Site
}

func NewHohoj(cfg config.SourceConfig, fetcher *Fetcher) Extractor {
	return &Hohoj{Site: NewSite(cfg.Name, cfg.Domain, cfg.Cookie, fetcher, "/video?id=%s", "/embed?id=%s")}
}

func (h *Hohoj) Parse(doc, identifier string) *Record {
	locator := ""
	if m := videoSrcRegex.FindStringSubmatch(doc); m != nil {
		locator = m[1]
	} else {
		locator = findM3U8(doc)
	}
	if locator == "" {
		return nil
	}

	rec := &Record{Identifier: identifier, Locator: locator}
	page, err := parseHTML(doc)
	if err == nil {
		rec.Title = metaContent(page, "og:title")
		if rec.Title == "" {
			rec.Title = strings.TrimSpace(page.Find("h1").First().Text())
		}
		rec.CoverURL = metaContent(page, "og:image")
		rec.Actors = actorInputs(texts(page.Find(`a[href*="/search?type=actress"]`)))
		rec.Genres = texts(page.Find(`a[href*="/search?type=tag"]`))
		rec.DurationSeconds = utils.ParseDuration(strings.TrimSpace(page.Find(".video-duration").First().Text()))
	}
	rec.Raw = rawFields(rec)
	return rec
}
