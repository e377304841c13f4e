package sources

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
)

var packedRegex = regexp.MustCompile(`eval\(function\(p,a,c,k,e,d\).*?\}\('(.*?)',\s*(\d+),\s*(\d+),\s*'(.*?)'\.split\('\|'\)`)

var wordRegex = regexp.MustCompile(`\b\w+\b`)

// MissAV hides its playlist URL inside a packed eval() script
type MissAV struct {
	*Site
}

func NewMissAV(cfg config.SourceConfig, fetcher *Fetcher) Extractor {
	return &MissAV{Site: NewSite(cfg.Name, cfg.Domain, cfg.Cookie, fetcher, "/%s", "/cn/%s", "/dm13/%s")}
}

func (m *MissAV) Parse(doc, identifier string) *Record {
	locator := findM3U8(doc)
	if locator == "" {
		if match := packedRegex.FindStringSubmatch(doc); match != nil {
			base, _ := strconv.Atoi(match[2])
			count, _ := strconv.Atoi(match[3])
			locator = findM3U8(unpack(match[1], base, count, strings.Split(match[4], "|")))
		}
	}
	if locator == "" {
		return nil
	}

	rec := &Record{Identifier: identifier, Locator: locator}
	page, err := parseHTML(doc)
	if err == nil {
		rec.Title = metaContent(page, "og:title")
		rec.CoverURL = metaContent(page, "og:image")
		rec.ReleaseDate = utils.NormalizeReleaseDate(metaContent(page, "og:video:release_date"))
		if secs, err := strconv.Atoi(metaContent(page, "og:video:duration")); err == nil {
			rec.DurationSeconds = utils.ParseDuration(secs)
		}
		rec.Actors = actorInputs(metaContents(page, "og:video:actor"))
		rec.Genres = texts(page.Find(`a[href*="/genres/"]`))
	}
	rec.Raw = rawFields(rec)
	return rec
}

// unpack reverses the p,a,c,k,e,d packer: every word in payload is a
// base-a index into keywords
func unpack(payload string, base, count int, keywords []string) string {
	if base < 2 || base > 36 {
		return payload
	}
	return wordRegex.ReplaceAllStringFunc(payload, func(word string) string {
		idx, err := strconv.ParseInt(word, base, 64)
		if err != nil || int(idx) >= count || int(idx) >= len(keywords) || keywords[idx] == "" {
			return word
		}
		return keywords[idx]
	})
}
