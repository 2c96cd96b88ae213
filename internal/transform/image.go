package transform

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// supportedExtensions lists the photo formats the pipeline can decode.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsSupportedName reports whether a file name has a decodable image
// extension. Listers use this to exclude unsupported types up front.
func IsSupportedName(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// MimeTypeFromName returns the MIME type implied by a file name extension.
func MimeTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// Transformer normalizes raw photo bytes into the JPEG form the
// analyzer expects: decoded, downscaled to fit the configured bounds,
// and re-encoded.
type Transformer struct {
	maxWidth  int
	maxHeight int
	quality   int
}

// Config holds transformer bounds and encoding quality.
type Config struct {
	MaxWidth    int
	MaxHeight   int
	JPEGQuality int
}

// NewTransformer creates a Transformer, applying defaults for zero values.
func NewTransformer(cfg *Config) *Transformer {
	t := &Transformer{
		maxWidth:  1920,
		maxHeight: 1080,
		quality:   85,
	}
	if cfg != nil {
		if cfg.MaxWidth > 0 {
			t.maxWidth = cfg.MaxWidth
		}
		if cfg.MaxHeight > 0 {
			t.maxHeight = cfg.MaxHeight
		}
		if cfg.JPEGQuality > 0 {
			t.quality = cfg.JPEGQuality
		}
	}
	return t
}

// Normalize decodes raw image bytes and returns analysis-ready JPEG
// bytes. Oversized images are downscaled preserving aspect ratio.
// Corrupt or undecodable input returns an error; the caller treats it
// as retry-eligible for the photo.
func (t *Transformer) Normalize(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > t.maxWidth || bounds.Dy() > t.maxHeight {
		img = t.downscale(img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale fits img inside the configured bounds, preserving aspect ratio.
func (t *Transformer) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	scaleW := float64(t.maxWidth) / float64(srcW)
	scaleH := float64(t.maxHeight) / float64(srcH)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
