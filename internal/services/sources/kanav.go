package sources

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
)

var playerConfigRegex = regexp.MustCompile(`var\s+player_\w+\s*=\s*(\{.*?\})\s*</script>`)

type playerConfig struct {
	URL     string `json:"url"`
	VodData struct {
		Name  string `json:"vod_name"`
		Actor string `json:"vod_actor"`
		Pic   string `json:"vod_pic"`
	} `json:"vod_data"`
}

// Kanav publishes a JSON player configuration object
type Kanav struct {
	*Site
}

func NewKanav(cfg config.SourceConfig, fetcher *Fetcher) Extractor {
	return &Kanav{Site: NewSite(cfg.Name, cfg.Domain, cfg.Cookie, fetcher, "/index.php/vod/search.html?wd=%s", "/vod/%s.html")}
}

func (k *Kanav) Parse(doc, identifier string) *Record {
	m := playerConfigRegex.FindStringSubmatch(doc)
	if m == nil {
		return nil
	}

	var player playerConfig
	if err := json.Unmarshal([]byte(m[1]), &player); err != nil {
		return nil
	}
	if !strings.Contains(player.URL, ".m3u8") {
		return nil
	}

	rec := &Record{
		Identifier: identifier,
		Locator:    player.URL,
		Title:      strings.TrimSpace(player.VodData.Name),
		CoverURL:   player.VodData.Pic,
	}
	for _, name := range strings.Split(player.VodData.Actor, ",") {
		if name = strings.TrimSpace(name); name != "" {
			rec.Actors = append(rec.Actors, actorInputs([]string{name})...)
		}
	}
	rec.Raw = rawFields(rec)
	return rec
}
