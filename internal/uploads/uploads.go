// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package uploads stores customer images for template variables.
//
// Files are written to the recent-uploads directory as
// "<variable>-<unix millis>-<random>.<ext>", the convention the asset
// resolver's prefix and base-name strategies rely on, and a mapping row is
// recorded so resolution does not depend on the name alone.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp" // register WebP decoder

	"storybook/internal/assets"
	"storybook/internal/models"
)

// maxImagePixels caps the number of pixels to prevent memory bombs.
// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
const maxImagePixels = 100_000_000

var (
	// ErrNotImage is returned when the content is not a supported image.
	ErrNotImage = errors.New("file is not a supported image")
	// ErrTooLarge is returned when the file or its pixel count exceeds the limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNoVariable is returned when the variable name yields no usable prefix.
	ErrNoVariable = errors.New("variable name is required")
)

// MappingRecorder persists the variable-to-file mapping of an upload.
type MappingRecorder interface {
	Create(ctx context.Context, m *models.AssetMapping) (*models.AssetMapping, error)
}

// Upload describes a stored file.
type Upload struct {
	VariableName string `json:"variableName"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// Saver writes uploads into one directory.
type Saver struct {
	dir      string
	maxBytes int64
	mappings MappingRecorder
	now      func() time.Time
}

// NewSaver returns a Saver writing into dir. mappings may be nil, in which
// case no mapping is recorded.
func NewSaver(dir string, maxBytes int64, mappings MappingRecorder) *Saver {
	return &Saver{dir: dir, maxBytes: maxBytes, mappings: mappings, now: time.Now}
}

// Save validates src and stores it for variableName.
func (s *Saver) Save(ctx context.Context, variableName string, src io.Reader) (*Upload, error) {
	prefix := FilePrefix(variableName)
	if prefix == "" {
		return nil, ErrNoVariable
	}

	data, err := io.ReadAll(io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, s.maxBytes)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		return nil, ErrNotImage
	}
	ext := "." + kind.Extension
	if !assets.IsImageFile(ext) {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, kind.MIME.Value)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxImagePixels)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := prefix + "-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + randomSuffix() + ext
	p := filepath.Join(s.dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	up := &Upload{
		VariableName: variableName,
		Filename:     name,
		Path:         p,
		ContentType:  kind.MIME.Value,
		Size:         int64(len(data)),
		Width:        cfg.Width,
		Height:       cfg.Height,
	}

	if s.mappings != nil {
		_, err := s.mappings.Create(ctx, &models.AssetMapping{
			VariableName: variableName,
			Value:        name,
			Path:         p,
			ContentType:  up.ContentType,
			SizeBytes:    up.Size,
		})
		if err != nil {
			// The file is still resolvable by name.
			slog.Warn("asset mapping not recorded", "variable", variableName, "path", p, "error", err)
		}
	}

	slog.Info("upload stored", "variable", variableName, "file", name, "size", up.Size)
	return up, nil
}

// FilePrefix returns the filename prefix for uploads of variableName. Names
// made only of ASCII letters, digits, underscores and hyphens are used as
// they are, so files keep matching the variable by prefix; anything else is
// slugified.
func FilePrefix(variableName string) string {
	if isSafeName(variableName) {
		return variableName
	}
	return slug.Make(variableName)
}

func isSafeName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func randomSuffix() string {
	return strconv.FormatUint(rand.Uint64()&0xffffffffff, 36)
}
