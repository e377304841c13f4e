package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/metrics"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/sirupsen/logrus"
)

// Factory builds an extractor from its configuration
type Factory func(cfg config.SourceConfig, fetcher *Fetcher) Extractor

// Factories is the fixed table of known content sites
var Factories = map[string]Factory{
	"missav": NewMissAV,
	"jable":  NewJable,
	"hohoj":  NewHohoj,
	"memo":   NewMemo,
	"kanav":  NewKanav,
}

// Entry is an extractor with its priority weight
type Entry struct {
	Extractor Extractor
	Weight    int
}

// Resolution is a successfully parsed page
type Resolution struct {
	Record     *Record
	SourceName string
	Document   string
}

// Attempt records the outcome of one source during resolution
type Attempt struct {
	Source  string
	Outcome Outcome
}

// ResolveError is returned when no source yields a record.
// It matches ErrNotFound when every source answered 404, ErrAccessDenied
// when any answered 403, and ErrFetch otherwise.
type ResolveError struct {
	Identifier string
	Attempts   []Attempt
}

func (e *ResolveError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Source+"="+string(a.Outcome))
	}
	return fmt.Sprintf("no source resolved %s (%s): %v", e.Identifier, strings.Join(parts, ", "), e.Unwrap())
}

// Unwrap exposes the error kind
func (e *ResolveError) Unwrap() error {
	allNotFound := len(e.Attempts) > 0
	for _, a := range e.Attempts {
		if a.Outcome == OutcomeForbidden {
			return models.ErrAccessDenied
		}
		if a.Outcome != OutcomeNotFound {
			allNotFound = false
		}
	}
	if allNotFound {
		return models.ErrNotFound
	}
	return models.ErrFetch
}

// CookieStore persists source session cookies
type CookieStore interface {
	LoadSourceCookies(ctx context.Context) (map[string]string, error)
	SaveSourceCookie(ctx context.Context, sourceName, cookie string) error
}

// Registry tries content sources in weight order until one yields a record
type Registry struct {
	ordered []Extractor
	byName  map[string]Extractor
	fetcher *Fetcher
	cookies CookieStore
	delay   time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger

	// Sleep waits between attempts; replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRegistry orders entries by weight (desc), then name (asc).
// Entries with weight <= 0 are skipped.
func NewRegistry(entries []Entry, fetcher *Fetcher, cookies CookieStore, delay time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Registry {
	enabled := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Weight > 0 {
			enabled = append(enabled, e)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Weight != enabled[j].Weight {
			return enabled[i].Weight > enabled[j].Weight
		}
		return enabled[i].Extractor.Name() < enabled[j].Extractor.Name()
	})

	r := &Registry{
		byName:  make(map[string]Extractor, len(enabled)),
		fetcher: fetcher,
		cookies: cookies,
		delay:   delay,
		metrics: m,
		logger:  logger,
		Sleep:   sleepContext,
	}
	for _, e := range enabled {
		r.ordered = append(r.ordered, e.Extractor)
		r.byName[e.Extractor.Name()] = e.Extractor
	}
	return r
}

// BuildRegistry instantiates every configured source from the factory table
// and applies persisted cookies over configured ones
func BuildRegistry(ctx context.Context, cfg *config.Config, fetcher *Fetcher, cookies CookieStore, m *metrics.Metrics, logger *logrus.Logger) (*Registry, error) {
	var entries []Entry
	for _, sc := range cfg.Sources {
		factory, ok := Factories[sc.Name]
		if !ok {
			return nil, fmt.Errorf("source %q: %w", sc.Name, models.ErrUnknownSource)
		}
		entries = append(entries, Entry{Extractor: factory(sc, fetcher), Weight: sc.Weight})
	}

	r := NewRegistry(entries, fetcher, cookies, cfg.PolitenessDelay, m, logger)
	if len(r.ordered) == 0 {
		return nil, fmt.Errorf("no content source enabled")
	}

	if cookies != nil {
		stored, err := cookies.LoadSourceCookies(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load source cookies: %w", err)
		}
		for name, cookie := range stored {
			if setter, ok := r.byName[name].(CookieSetter); ok && cookie != "" {
				setter.SetCookie(cookie)
			}
		}
	}

	logger.WithField("sources", r.Sources()).Info("Source registry ready")
	return r, nil
}

// Sources lists registered source names in try order
func (r *Registry) Sources() []string {
	names := make([]string, 0, len(r.ordered))
	for _, ex := range r.ordered {
		names = append(names, ex.Name())
	}
	return names
}

// ResolveFromAny walks every source in order and returns the first record
func (r *Registry) ResolveFromAny(ctx context.Context, identifier string) (*Resolution, error) {
	var attempts []Attempt
	for i, ex := range r.ordered {
		if i > 0 && r.delay > 0 {
			if err := r.Sleep(ctx, r.delay); err != nil {
				return nil, err
			}
		}

		res, outcome := r.try(ctx, ex, identifier)
		if res != nil {
			return res, nil
		}
		attempts = append(attempts, Attempt{Source: ex.Name(), Outcome: outcome})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	r.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"attempts":   len(attempts),
	}).Warn("No source resolved identifier")
	return nil, &ResolveError{Identifier: identifier, Attempts: attempts}
}

// ResolveFromSource resolves identifier using only the named source
func (r *Registry) ResolveFromSource(ctx context.Context, identifier, name string) (*Resolution, error) {
	ex, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", name, models.ErrUnknownSource)
	}
	res, outcome := r.try(ctx, ex, identifier)
	if res != nil {
		return res, nil
	}
	return nil, &ResolveError{Identifier: identifier, Attempts: []Attempt{{Source: name, Outcome: outcome}}}
}

func (r *Registry) try(ctx context.Context, ex Extractor, identifier string) (*Resolution, Outcome) {
	logger := r.logger.WithFields(logrus.Fields{
		"source":     ex.Name(),
		"identifier": identifier,
	})

	doc, outcome := ex.FetchDocument(ctx, identifier)
	if outcome != OutcomeOK {
		logger.WithField("outcome", outcome).Info("Source fetch failed")
		r.metrics.SourceOutcome(ex.Name(), string(outcome))
		return nil, outcome
	}

	rec, err := SafeParse(ex, doc, identifier)
	if err != nil {
		logger.WithError(err).Error("Parser crashed")
	}
	if rec == nil || rec.Locator == "" {
		logger.Info("Source page had no usable record")
		r.metrics.SourceOutcome(ex.Name(), string(OutcomeParseError))
		return nil, OutcomeParseError
	}

	logger.Info("Source resolved")
	r.metrics.SourceOutcome(ex.Name(), string(OutcomeOK))
	return &Resolution{Record: rec, SourceName: ex.Name(), Document: doc}, OutcomeOK
}

// RefreshCookie performs the site handshake for name and persists the new cookie
func (r *Registry) RefreshCookie(ctx context.Context, name string) (string, error) {
	ex, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("source %q: %w", name, models.ErrUnknownSource)
	}
	setter, ok := ex.(CookieSetter)
	if !ok {
		return "", fmt.Errorf("source %q does not use cookies", name)
	}

	cookie, err := r.fetcher.Handshake(ctx, BaseURL(ex.Domain()))
	if err != nil {
		return "", fmt.Errorf("failed to refresh cookie for %s: %w", name, err)
	}
	setter.SetCookie(cookie)

	if r.cookies != nil {
		if err := r.cookies.SaveSourceCookie(ctx, name, cookie); err != nil {
			return "", fmt.Errorf("failed to save cookie for %s: %w", name, err)
		}
	}

	r.logger.WithField("source", name).Info("Source cookie refreshed")
	return cookie, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

