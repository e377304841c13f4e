package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	coversDir     = "covers"
	videosDir     = "videos"
	thumbnailsDir = "thumbnails"
	avatarsDir    = "avatars"
	htmlDir       = "html"

	// VideoExt is the container the downloader is asked to produce
	VideoExt = ".mp4"
)

// Layout maps identifiers to files under the data directory
type Layout struct {
	root string
}

// NewLayout creates the directory tree under root
func NewLayout(root string) (*Layout, error) {
	for _, dir := range []string{coversDir, videosDir, thumbnailsDir, avatarsDir, htmlDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &Layout{root: root}, nil
}

func (l *Layout) Root() string          { return l.root }
func (l *Layout) VideosDir() string     { return filepath.Join(l.root, videosDir) }
func (l *Layout) CoversDir() string     { return filepath.Join(l.root, coversDir) }
func (l *Layout) ThumbnailsDir() string { return filepath.Join(l.root, thumbnailsDir) }

// CoverFilename is the cover name stored on the media record
func CoverFilename(identifier string) string {
	return identifier + ".jpg"
}

func (l *Layout) CoverPath(filename string) string {
	return filepath.Join(l.root, coversDir, filename)
}

func (l *Layout) VideoPath(identifier string) string {
	return filepath.Join(l.root, videosDir, identifier+VideoExt)
}

func (l *Layout) ThumbnailPath(identifier string) string {
	return filepath.Join(l.root, thumbnailsDir, identifier+".jpg")
}

func (l *Layout) AvatarPath(filename string) string {
	return filepath.Join(l.root, avatarsDir, filename)
}

// DocumentPath is where the raw page fetched from source is archived
func (l *Layout) DocumentPath(identifier, source string) string {
	return filepath.Join(l.root, htmlDir, identifier+"."+source+".html")
}

// SaveDocument archives the raw page of identifier as fetched from source
func (l *Layout) SaveDocument(identifier, source, doc string) error {
	return WriteFileAtomic(l.DocumentPath(identifier, source), []byte(doc))
}

// FileSize returns the size of path, or ok=false when it is absent
func FileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}

// RemoveMediaFiles deletes every file belonging to identifier and
// returns the paths that were removed
func (l *Layout) RemoveMediaFiles(identifier, coverFilename string) ([]string, error) {
	paths := []string{
		l.VideoPath(identifier),
		l.ThumbnailPath(identifier),
	}
	if coverFilename != "" {
		paths = append(paths, l.CoverPath(coverFilename))
	}
	docs, err := filepath.Glob(filepath.Join(l.root, htmlDir, identifier+".*.html"))
	if err != nil {
		return nil, err
	}
	paths = append(paths, docs...)

	var removed []string
	var errs []error
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case !errors.Is(err, os.ErrNotExist):
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// ListVideos returns the identifiers of every video on disk
func (l *Layout) ListVideos() ([]string, error) {
	return listStems(l.VideosDir(), VideoExt)
}

// ListCovers returns the identifiers of every cover on disk
func (l *Layout) ListCovers() ([]string, error) {
	return listStems(l.CoversDir(), ".jpg")
}

func listStems(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var stems []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(stems)
	return stems, nil
}

// WriteFileAtomic writes data next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
