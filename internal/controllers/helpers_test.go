package controllers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/notify"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/enrichment"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestDatabase(t *testing.T) *models.Database {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestLayout(t *testing.T) *storage.Layout {
	t.Helper()
	layout, err := storage.NewLayout(t.TempDir())
	require.NoError(t, err)
	return layout
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newImageServer serves a PNG on every path except /missing
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	data := pngBytes(t, 64, 48)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubExtractor struct {
	name    string
	outcome sources.Outcome
	record  *sources.Record
}

func (s *stubExtractor) Name() string   { return s.name }
func (s *stubExtractor) Domain() string { return s.name + ".example" }

func (s *stubExtractor) FetchDocument(_ context.Context, identifier string) (string, sources.Outcome) {
	if s.outcome != sources.OutcomeOK {
		return "", s.outcome
	}
	return "<html>" + identifier + "</html>", sources.OutcomeOK
}

func (s *stubExtractor) Parse(_, _ string) *sources.Record {
	if s.record == nil {
		return nil
	}
	rec := *s.record
	return &rec
}

type stubEnricher struct {
	metadata *enrichment.Metadata
}

func (s *stubEnricher) Name() string   { return "stubbus" }
func (s *stubEnricher) Domain() string { return "stubbus.example" }

func (s *stubEnricher) FetchDocument(_ context.Context, identifier string) (string, sources.Outcome) {
	if s.metadata == nil {
		return "", sources.OutcomeNotFound
	}
	return "<html>" + identifier + "</html>", sources.OutcomeOK
}

func (s *stubEnricher) Parse(_, _ string) *enrichment.Metadata {
	if s.metadata == nil {
		return nil
	}
	md := *s.metadata
	return &md
}

type fakeSubmitter struct {
	mu           sync.Mutex
	downloads    []string
	translations []string
}

func (f *fakeSubmitter) SubmitDownload(_ context.Context, identifier string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, identifier)
	return "job-" + identifier, nil
}

func (f *fakeSubmitter) SubmitTranslation(_ context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translations = append(f.translations, identifier)
	return nil
}

func (f *fakeSubmitter) translationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.translations)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *eventRecorder) Publish(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
