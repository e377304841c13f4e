package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// ThumbnailWidth is the width of generated thumbnails
const ThumbnailWidth = 320

// GenerateThumbnail scales the image at src down to width and writes it to dst as JPEG
func GenerateThumbnail(src, dst string, width int) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return fmt.Errorf("image has no pixels")
	}
	if width <= 0 || width > bounds.Dx() {
		width = bounds.Dx()
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height == 0 {
		height = 1
	}

	thumb := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return WriteFileAtomic(dst, buf.Bytes())
}
