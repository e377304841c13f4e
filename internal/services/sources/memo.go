package sources

import (
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
)

// Memo serves the playlist from a video element attribute
type Memo struct {
	*Site
}

func NewMemo(cfg config.SourceConfig, fetcher *Fetcher) Extractor {
	return &Memo{Site: NewSite(cfg.Name, cfg.Domain, cfg.Cookie, fetcher, "/video/%s", "/hls/get_video_info.php?id=%s")}
}

func (m *Memo) Parse(doc, identifier string) *Record {
	page, err := parseHTML(doc)
	if err != nil {
		return nil
	}

	locator := ""
	for _, attr := range []string{"data-src", "src"} {
		if v, ok := page.Find("video source, video").First().Attr(attr); ok && strings.Contains(v, ".m3u8") {
			locator = v
			break
		}
	}
	if locator == "" {
		locator = findM3U8(doc)
	}
	if locator == "" {
		return nil
	}

	rec := &Record{
		Identifier: identifier,
		Locator:    locator,
		Title:      metaContent(page, "og:title"),
		CoverURL:   metaContent(page, "og:image"),
		Actors:     actorInputs(texts(page.Find(".video-actress a"))),
		Genres:     texts(page.Find(".video-tags a")),
	}
	rec.ReleaseDate = utils.NormalizeReleaseDate(strings.TrimSpace(page.Find(".video-date").First().Text()))
	rec.DurationSeconds = utils.ParseDuration(strings.TrimSpace(page.Find(".video-duration").First().Text()))
	rec.Raw = rawFields(rec)
	return rec
}
