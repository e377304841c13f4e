package enrichment

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"
)

var infoHeaderRegex = regexp.MustCompile(`^\s*([^:：]+)[:：]\s*(.*)$`)

// JavBus parses javbus-style detail pages. Mirror sites share the
// implementation and differ only by name and domain.
type JavBus struct {
	name    string
	domain  string
	fetcher *sources.Fetcher
	logger  *logrus.Logger
}

// NewJavBus creates an enricher for a javbus-compatible site
func NewJavBus(cfg config.EnrichmentConfig, fetcher *sources.Fetcher, logger *logrus.Logger) Enricher {
	return &JavBus{name: cfg.Name, domain: cfg.Domain, fetcher: fetcher, logger: logger}
}

func (j *JavBus) Name() string   { return j.name }
func (j *JavBus) Domain() string { return j.domain }

// FetchDocument loads the detail page, falling back to the search page
// when the detail URL does not exist
func (j *JavBus) FetchDocument(ctx context.Context, identifier string) (string, sources.Outcome) {
	base := sources.BaseURL(j.domain)

	body, status, err := j.fetcher.Get(ctx, base+"/"+identifier, "", base+"/")
	if err == nil {
		return body, sources.OutcomeOK
	}
	if status != 404 {
		return "", sources.ClassifyStatuses([]int{status})
	}

	searchBody, status, err := j.fetcher.Get(ctx, base+"/search/"+url.PathEscape(identifier), "", base+"/")
	if err != nil {
		return "", sources.ClassifyStatuses([]int{404, status})
	}

	detailURL := matchSearchResult(searchBody, identifier)
	if detailURL == "" {
		return "", sources.OutcomeNotFound
	}
	detailURL = resolveURL(base, detailURL)

	j.logger.WithFields(logrus.Fields{
		"enricher":   j.name,
		"identifier": identifier,
		"url":        detailURL,
	}).Debug("Following search result")

	body, status, err = j.fetcher.Get(ctx, detailURL, "", base+"/")
	if err != nil {
		return "", sources.ClassifyStatuses([]int{status})
	}
	return body, sources.OutcomeOK
}

// matchSearchResult returns the link of the search candidate whose code
// is closest to identifier. Candidates must carry the same number and may
// differ by at most maxCodeDistance edits (release suffixes such as -C).
func matchSearchResult(doc, identifier string) string {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}

	want := normalizeCode(identifier)
	best, bestDist := "", -1
	page.Find("a.movie-box").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		code := normalizeCode(s.Find("date").First().Text())
		if code == "" {
			return
		}
		if codeLabel(code) != codeLabel(want) || codeDigits(code) != codeDigits(want) {
			return
		}
		dist := levenshtein.ComputeDistance(want, code)
		if dist > maxCodeDistance {
			return
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = href, dist
		}
	})
	return best
}

const maxCodeDistance = 1

var (
	codeSeparators = strings.NewReplacer("-", "", "_", "", " ", "")
	paddedNumber   = regexp.MustCompile(`([A-Z])0+(\d)`)
	digitRuns      = regexp.MustCompile(`\d+`)
)

// normalizeCode upper-cases a code and drops separators and zero padding,
// so ABC-0123 and abc123 compare equal.
func normalizeCode(s string) string {
	s = codeSeparators.Replace(strings.ToUpper(strings.TrimSpace(s)))
	return paddedNumber.ReplaceAllString(s, "$1$2")
}

func codeLabel(code string) string {
	if i := strings.IndexFunc(code, unicode.IsDigit); i >= 0 {
		return code[:i]
	}
	return code
}

func codeDigits(code string) string {
	return strings.Join(digitRuns.FindAllString(code, -1), " ")
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base + "/")
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func (j *JavBus) Parse(doc, identifier string) *Metadata {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil
	}

	base := sources.BaseURL(j.domain)
	md := &Metadata{SourceName: j.name}

	md.Title = strings.TrimSpace(page.Find("div.container h3").First().Text())
	if cover, ok := page.Find("a.bigImage").Attr("href"); ok {
		md.CoverURL = resolveURL(base, cover)
	}

	page.Find("div.info p").Each(func(_ int, s *goquery.Selection) {
		m := infoHeaderRegex.FindStringSubmatch(s.Text())
		if m == nil {
			return
		}
		header, value := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		switch header {
		case "發行日期", "发行日期", "Release Date":
			md.ReleaseDate = utils.NormalizeReleaseDate(value)
		case "長度", "长度", "Length":
			md.DurationSeconds = utils.ParseDuration(strings.NewReplacer("分鐘", "分钟").Replace(value))
		case "製作商", "制作商", "Studio":
			md.Studio = value
		case "發行商", "发行商", "Label":
			md.Label = value
		case "系列", "Series":
			md.Series = value
		}
	})

	avatars := make(map[string]string)
	page.Find("a.avatar-box").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find("span").Text())
		if src, ok := s.Find("img").Attr("src"); ok && name != "" && !strings.Contains(src, "nowprinting") {
			avatars[name] = resolveURL(base, src)
		}
	})
	seen := make(map[string]bool)
	page.Find("div.star-name a, span.genre a[href*='/star/']").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		md.Actors = append(md.Actors, models.ActorInput{Name: name, AvatarURL: avatars[name]})
	})

	seenGenre := make(map[string]bool)
	page.Find("span.genre label a, span.genre a[href*='/genre/']").Each(func(_ int, s *goquery.Selection) {
		g := strings.TrimSpace(s.Text())
		if g != "" && !seenGenre[g] {
			seenGenre[g] = true
			md.Genres = append(md.Genres, g)
		}
	})

	if md.Empty() {
		return nil
	}
	// pages of a different code are a wrong match, not our metadata
	if code := strings.TrimSpace(page.Find("div.info p span[style]").First().Text()); code != "" && normalizeCode(code) != normalizeCode(identifier) {
		return nil
	}
	md.Title = strings.TrimSpace(strings.TrimPrefix(md.Title, fmt.Sprintf("%s ", strings.ToUpper(identifier))))
	return md
}
