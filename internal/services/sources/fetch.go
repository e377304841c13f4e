package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/sirupsen/logrus"
)

const maxDocumentBytes = 8 << 20

// Fetcher performs the page requests of every extractor
type Fetcher struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewFetcher creates a fetcher using httpClient
func NewFetcher(httpClient *http.Client, logger *logrus.Logger) *Fetcher {
	return &Fetcher{httpClient: httpClient, logger: logger}
}

// Get requests pageURL and returns the body and status code.
// A transport failure is reported with status 0.
func (f *Fetcher) Get(ctx context.Context, pageURL, cookie, referer string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", utils.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8,ja;q=0.7")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	f.logger.WithField("url", pageURL).Debug("Fetching page")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return string(body), resp.StatusCode, nil
}

// Handshake visits baseURL and returns the cookies the site sets, as a Cookie header value
func (f *Fetcher) Handshake(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", utils.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("handshake failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentBytes))

	var parts []string
	for _, c := range resp.Cookies() {
		parts = append(parts, c.Name+"="+c.Value)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("site set no cookies (status %d)", resp.StatusCode)
	}
	return strings.Join(parts, "; "), nil
}

// BaseURL turns a configured domain into a URL prefix.
// Domains carrying a scheme are used as-is.
func BaseURL(domain string) string {
	domain = strings.TrimRight(domain, "/")
	if strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}
