package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxImageBytes = 20 << 20

// AssetFetcher downloads covers and avatars
type AssetFetcher struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewAssetFetcher creates an image downloader using httpClient
func NewAssetFetcher(httpClient *http.Client, logger *logrus.Logger) *AssetFetcher {
	return &AssetFetcher{httpClient: httpClient, logger: logger}
}

// AvatarFilename derives a stable file name for an avatar URL
func AvatarFilename(avatarURL string) string {
	ext := ".jpg"
	if u, err := url.Parse(avatarURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); e == ".png" || e == ".webp" || e == ".jpeg" {
			ext = e
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(avatarURL)).String() + ext
}

// Download fetches imageURL into dest. referer is sent when non-empty,
// since most image hosts refuse hotlinked requests.
func (f *AssetFetcher) Download(ctx context.Context, imageURL, referer, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", utils.UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image request failed with status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return fmt.Errorf("unexpected content type %q", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty image body")
	}

	if err := WriteFileAtomic(dest, data); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"url":  imageURL,
		"dest": dest,
		"size": len(data),
	}).Debug("Image downloaded")
	return nil
}
