// Package media stores uploaded product images. Uploads arrive as base64
// data URLs, are re-encoded to bounded JPEGs and served statically.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// webp uploads are decoded via the registered image format.
	_ "golang.org/x/image/webp"

	"github.com/web3market/marketd/core"
)

var dataURLRe = regexp.MustCompile(`^data:([\w/+.-]+);base64,(.+)$`)

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Config bounds the image pipeline.
type Config struct {
	Dir          string // root uploads directory
	PublicPrefix string // URL prefix the directory is served under
	MaxBytes     int64  // size cap after re-encoding
	MaxDimension int    // longest side after resizing
}

// DiskImageStore writes processed images under Config.Dir.
type DiskImageStore struct {
	cfg Config
}

// NewDiskImageStore prepares the uploads directory.
func NewDiskImageStore(cfg Config) (*DiskImageStore, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "products"), 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskImageStore{cfg: cfg}, nil
}

// SaveProductImage decodes a data URL, normalizes the image (auto-orient,
// fit within MaxDimension, JPEG quality 82) and writes it to disk.
func (s *DiskImageStore) SaveProductImage(_ context.Context, dataURL string) (*core.StoredImage, error) {
	parts := dataURLRe.FindStringSubmatch(strings.TrimSpace(dataURL))
	if parts == nil {
		return nil, fmt.Errorf("image must be a base64 data URL")
	}
	mime := strings.ToLower(parts[1])
	if !allowedMime[mime] {
		return nil, fmt.Errorf("unsupported image type %q, want JPEG, PNG or WebP", mime)
	}

	raw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Fit(img, s.cfg.MaxDimension, s.cfg.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if int64(buf.Len()) > s.cfg.MaxBytes {
		return nil, fmt.Errorf("image too large after compression (limit %d bytes)", s.cfg.MaxBytes)
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.cfg.Dir, "products", name), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &core.StoredImage{
		URL:       s.cfg.PublicPrefix + "/products/" + name,
		SizeBytes: int64(buf.Len()),
	}, nil
}
