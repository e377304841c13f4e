package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatuses(t *testing.T) {
	assert.Equal(t, OutcomeNotFound, ClassifyStatuses([]int{404, 404}))
	assert.Equal(t, OutcomeForbidden, ClassifyStatuses([]int{404, 403}))
	assert.Equal(t, OutcomeFetchError, ClassifyStatuses([]int{404, 500}))
	assert.Equal(t, OutcomeFetchError, ClassifyStatuses([]int{0}))
	assert.Equal(t, OutcomeFetchError, ClassifyStatuses(nil))
}

func TestSiteFetchDocumentTriesTemplatesInOrder(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/cn/abc-123":
			_, _ = w.Write([]byte("found"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	ex := NewMissAV(config.SourceConfig{Name: "missav", Domain: server.URL}, NewFetcher(server.Client(), testLogger()))
	doc, outcome := ex.FetchDocument(context.Background(), "ABC-123")
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "found", doc)
	assert.Equal(t, []string{"/abc-123", "/cn/abc-123"}, paths)
}

func TestSiteFetchDocumentForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	ex := NewJable(config.SourceConfig{Name: "jable", Domain: server.URL}, NewFetcher(server.Client(), testLogger()))
	_, outcome := ex.FetchDocument(context.Background(), "ABC-123")
	assert.Equal(t, OutcomeForbidden, outcome)
}

func TestMissAVParsePackedScript(t *testing.T) {
	// "0://1.2/3/4.5" packed with keywords https|cdn|example|abc|playlist|m3u8
	doc := `<html><head>
<meta property="og:title" content="ABC-123 Packed title">
<meta property="og:video:duration" content="5880">
<meta property="og:video:actor" content="Alice">
<meta property="og:video:release_date" content="2023/01/15">
</head><body><script>eval(function(p,a,c,k,e,d){e=function(c){return c};return p}('0://1.2/3/4.5',6,6,'https|cdn|example|abc|playlist|m3u8'.split('|'),0,{}))</script></body></html>`

	rec := (&MissAV{}).Parse(doc, "ABC-123")
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example/abc/playlist.m3u8", rec.Locator)
	assert.Equal(t, "ABC-123 Packed title", rec.Title)
	assert.Equal(t, 5880, rec.DurationSeconds)
	assert.Equal(t, "2023-01-15", rec.ReleaseDate)
	require.Len(t, rec.Actors, 1)
	assert.Equal(t, "Alice", rec.Actors[0].Name)
}

func TestMissAVParseWithoutLocator(t *testing.T) {
	doc := `<html><head><meta property="og:title" content="Title only"></head></html>`
	assert.Nil(t, (&MissAV{}).Parse(doc, "ABC-123"))
}

func TestJableParse(t *testing.T) {
	doc := `<html><head><meta property="og:title" content="ABC-123 Jable title">
<meta property="og:image" content="https://img.example/cover.jpg"></head>
<body>
<div class="models"><a class="model" href="/models/alice/"><img class="avatar" src="https://img.example/alice.jpg" title="Alice"></a></div>
<h5 class="tags"><a href="/tags/drama/">Drama</a><a href="/tags/drama/">Drama</a></h5>
<script>var hlsUrl = 'https://cdn.example/abc/index.m3u8';</script>
</body></html>`

	rec := (&Jable{}).Parse(doc, "ABC-123")
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example/abc/index.m3u8", rec.Locator)
	assert.Equal(t, "https://img.example/cover.jpg", rec.CoverURL)
	require.Len(t, rec.Actors, 1)
	assert.Equal(t, "Alice", rec.Actors[0].Name)
	assert.Equal(t, "https://img.example/alice.jpg", rec.Actors[0].AvatarURL)
	assert.Equal(t, []string{"Drama"}, rec.Genres)
}

func TestKanavParse(t *testing.T) {
	doc := `<script>var player_aaaa={"url":"https:\/\/cdn.example\/v\/index.m3u8","vod_data":{"vod_name":"Kanav title","vod_actor":"Alice, Bob","vod_pic":"https:\/\/img.example\/p.jpg"}}</script>`

	rec := (&Kanav{}).Parse(doc, "ABC-123")
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example/v/index.m3u8", rec.Locator)
	assert.Equal(t, "Kanav title", rec.Title)
	assert.Len(t, rec.Actors, 2)

	assert.Nil(t, (&Kanav{}).Parse(`<script>var player_aaaa={"url":"https:\/\/cdn.example\/v.mp4"}</script>`, "ABC-123"))
}

func TestMemoAndHohojParse(t *testing.T) {
	memo := `<html><body><video><source data-src="https://cdn.example/memo/index.m3u8"></video>
<div class="video-duration">98分钟</div></body></html>`
	rec := (&Memo{}).Parse(memo, "ABC-123")
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example/memo/index.m3u8", rec.Locator)
	assert.Equal(t, 5880, rec.DurationSeconds)

	hohoj := `<html><head><title>x</title></head><body><h1>Hohoj title</h1>
<script>var videoSrc = 'https://cdn.example/hohoj/index.m3u8';</script></body></html>`
	rec = (&Hohoj{}).Parse(hohoj, "ABC-123")
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example/hohoj/index.m3u8", rec.Locator)
	assert.Equal(t, "Hohoj title", rec.Title)
}
