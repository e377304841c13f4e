package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailPage = `<html><body><div class="container">
<h3>ABC-123 Enriched native title</h3>
<div class="row movie">
<div class="col-md-9 screencap"><a class="bigImage" href="/pics/cover/abc_b.jpg"><img src="/pics/cover/abc_b.jpg"></a></div>
<div class="col-md-3 info">
<p><span class="header">識別碼:</span> <span style="color:#CC0000;">ABC-123</span></p>
<p><span class="header">發行日期:</span> 2023-01-15</p>
<p><span class="header">長度:</span> 98分鐘</p>
<p><span class="header">製作商:</span> <a href="/studio/1">Studio One</a></p>
<p><span class="genre"><label><a href="/genre/1">Drama</a></label></span><span class="genre"><label><a href="/genre/2">Solo</a></label></span></p>
<div class="star-name"><a href="/star/1">Alice</a></div>
</div></div>
<a class="avatar-box" href="/star/1"><div class="photo-frame"><img src="/pics/actress/alice.jpg"></div><span>Alice</span></a>
</div></body></html>`

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newEnricher(t *testing.T, handler http.HandlerFunc) (Enricher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	fetcher := sources.NewFetcher(server.Client(), testLogger())
	return NewJavBus(config.EnrichmentConfig{Name: "javbus", Domain: server.URL}, fetcher, testLogger()), server
}

func TestJavBusParse(t *testing.T) {
	e, server := newEnricher(t, func(w http.ResponseWriter, r *http.Request) {})

	md := e.Parse(detailPage, "ABC-123")
	require.NotNil(t, md)
	assert.Equal(t, "Enriched native title", md.Title)
	assert.Equal(t, "2023-01-15", md.ReleaseDate)
	assert.Equal(t, 5880, md.DurationSeconds)
	assert.Equal(t, "Studio One", md.Studio)
	assert.Equal(t, server.URL+"/pics/cover/abc_b.jpg", md.CoverURL)
	assert.Equal(t, []string{"Drama", "Solo"}, md.Genres)
	require.Len(t, md.Actors, 1)
	assert.Equal(t, "Alice", md.Actors[0].Name)
	assert.Equal(t, server.URL+"/pics/actress/alice.jpg", md.Actors[0].AvatarURL)

	// a detail page for another code is not a match
	assert.Nil(t, e.Parse(detailPage, "XYZ-001"))
}

func TestJavBusSearchFallback(t *testing.T) {
	e, _ := newEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ABC-123":
			http.NotFound(w, r)
		case "/search/ABC-123":
			_, _ = io.WriteString(w, `<html><body>
<a class="movie-box" href="/ABC-1234"><date>ABC-1234</date></a>
<a class="movie-box" href="/ABC-123_2023"><date>ABC-123</date></a>
</body></html>`)
		case "/ABC-123_2023":
			_, _ = io.WriteString(w, detailPage)
		default:
			http.NotFound(w, r)
		}
	})

	doc, outcome := e.FetchDocument(context.Background(), "ABC-123")
	assert.Equal(t, sources.OutcomeOK, outcome)
	assert.Contains(t, doc, "Enriched native title")
}

func TestJavBusSearchRejectsOtherNumbers(t *testing.T) {
	e, _ := newEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search/ABC-123" {
			_, _ = io.WriteString(w, `<a class="movie-box" href="/ABC-124"><date>ABC-124</date></a>`)
			return
		}
		http.NotFound(w, r)
	})

	_, outcome := e.FetchDocument(context.Background(), "ABC-123")
	assert.Equal(t, sources.OutcomeNotFound, outcome)
}

func TestMatchSearchResult(t *testing.T) {
	page := func(codes ...string) string {
		var b strings.Builder
		for _, c := range codes {
			fmt.Fprintf(&b, `<a class="movie-box" href="/%s"><date>%s</date></a>`, c, c)
		}
		return b.String()
	}

	tests := []struct {
		name       string
		doc        string
		identifier string
		want       string
	}{
		{"exact", page("ABC-1234", "ABC-123"), "ABC-123", "/ABC-123"},
		{"zero padded listing", page("ABC-0123"), "ABC-123", "/ABC-0123"},
		{"zero padded identifier", page("ABC-123"), "abc_00123", "/ABC-123"},
		{"release suffix", page("ABC-123-C"), "ABC-123", "/ABC-123-C"},
		{"exact beats suffix", page("ABC-123-C", "ABC-123"), "ABC-123", "/ABC-123"},
		{"different number", page("ABC-124", "ABC-1230"), "ABC-123", ""},
		{"different label", page("XYZ-123"), "ABC-123", ""},
		{"label one edit away", page("ABD-123"), "ABC-123", ""},
		{"no candidates", "<html></html>", "ABC-123", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchSearchResult(tt.doc, tt.identifier))
		})
	}
}

type stubEnricher struct {
	name    string
	outcome sources.Outcome
	md      *Metadata
	calls   *int
}

func (s *stubEnricher) Name() string   { return s.name }
func (s *stubEnricher) Domain() string { return s.name }
func (s *stubEnricher) FetchDocument(context.Context, string) (string, sources.Outcome) {
	*s.calls++
	return "doc", s.outcome
}
func (s *stubEnricher) Parse(string, string) *Metadata { return s.md }

func TestResolverDeclarationOrder(t *testing.T) {
	calls := 0
	r := NewResolver([]Enricher{
		&stubEnricher{name: "down", outcome: sources.OutcomeFetchError, calls: &calls},
		&stubEnricher{name: "empty", outcome: sources.OutcomeOK, md: &Metadata{}, calls: &calls},
		&stubEnricher{name: "good", outcome: sources.OutcomeOK, md: &Metadata{Title: "found"}, calls: &calls},
		&stubEnricher{name: "never", outcome: sources.OutcomeOK, md: &Metadata{Title: "later"}, calls: &calls},
	}, testLogger())

	md := r.Resolve(context.Background(), "ABC-123")
	require.NotNil(t, md)
	assert.Equal(t, "found", md.Title)
	assert.Equal(t, 3, calls)
}

func TestResolverNothingFound(t *testing.T) {
	calls := 0
	r := NewResolver([]Enricher{
		&stubEnricher{name: "a", outcome: sources.OutcomeNotFound, calls: &calls},
	}, testLogger())
	assert.Nil(t, r.Resolve(context.Background(), "ABC-123"))
}

func TestBuildResolverMirrorSharesImplementation(t *testing.T) {
	cfg := &config.Config{Enrichment: []config.EnrichmentConfig{
		{Name: "javbus", Domain: "www.javbus.com"},
		{Name: "busmirror", Domain: "www.busjav.cfd"},
	}}
	r, err := BuildResolver(cfg, nil, testLogger())
	require.NoError(t, err)
	require.Len(t, r.enrichers, 2)
	assert.IsType(t, &JavBus{}, r.enrichers[1])
	assert.Equal(t, "www.busjav.cfd", r.enrichers[1].Domain())
}
