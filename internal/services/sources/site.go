package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Site carries what every content extractor shares: its name, domain,
// session cookie and the ordered page URL templates it tries.
type Site struct {
	name    string
	domain  string
	paths   []string // fmt templates taking the lower-cased identifier
	fetcher *Fetcher

	mu     sync.RWMutex
	cookie string
}

// NewSite creates the shared part of an extractor
func NewSite(name, domain, cookie string, fetcher *Fetcher, paths ...string) *Site {
	return &Site{
		name:    name,
		domain:  domain,
		paths:   paths,
		fetcher: fetcher,
		cookie:  cookie,
	}
}

func (s *Site) Name() string   { return s.name }
func (s *Site) Domain() string { return s.domain }

// SetCookie replaces the session cookie sent with page requests
func (s *Site) SetCookie(cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = cookie
}

// Cookie returns the current session cookie
func (s *Site) Cookie() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookie
}

// FetchDocument tries every page template in order; the first 2xx body wins
func (s *Site) FetchDocument(ctx context.Context, identifier string) (string, Outcome) {
	base := BaseURL(s.domain)
	cookie := s.Cookie()

	var statuses []int
	for _, path := range s.paths {
		pageURL := base + fmt.Sprintf(path, strings.ToLower(identifier))
		body, status, err := s.fetcher.Get(ctx, pageURL, cookie, base+"/")
		if err == nil {
			return body, OutcomeOK
		}
		s.fetcher.logger.WithFields(logrus.Fields{
			"source": s.name,
			"url":    pageURL,
			"status": status,
		}).WithError(err).Debug("Page fetch failed")
		statuses = append(statuses, status)
		if ctx.Err() != nil {
			break
		}
	}
	return "", ClassifyStatuses(statuses)
}
