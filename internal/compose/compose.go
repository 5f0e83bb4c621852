// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package compose renders a personalized book from a template: the final
// PDF and a PNG preview of single pages. Element boxes are placed with the
// same percentage geometry the editor uses, with the page size in PDF
// points as the original dimensions.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder

	"storybook/internal/layout"
	"storybook/internal/models"
)

// ErrNoPages is returned when a template has no pages to render.
var ErrNoPages = errors.New("template has no pages")

// Book is everything needed to render one story.
type Book struct {
	Template *models.Template
	// Values holds the text substitutions.
	Values map[string]string
	// Images maps image variables to resolved file paths. Variables
	// missing here are drawn as placeholders.
	Images map[string]string
	// ShareURL, when set, adds a closing page with a QR code linking to it.
	ShareURL string
}

func (b Book) validate() error {
	if b.Template == nil || b.Template.PageCount() == 0 {
		return ErrNoPages
	}
	return nil
}

// placements returns the elements of pageIndex in draw order, with boxes in
// the given output size.
func (b Book) placements(pageIndex int, width, height float64) []layout.Placement {
	page, _ := b.Template.PageDimensions(pageIndex)
	ctx := layout.NewDisplayContext(
		layout.Dimensions{Width: page.Width, Height: page.Height},
		layout.Dimensions{Width: width, Height: height},
	)
	return ctx.Layout(b.Template.Elements, pageIndex, "")
}

// loadFitted opens an image and crops it to fill a w x h box, centered.
func loadFitted(path string, w, h int) (image.Image, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("empty box %dx%d", w, h)
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos), nil
}

// parseColor reads "#rgb" or "#rrggbb". Anything else yields fallback.
func parseColor(s string, fallback color.NRGBA) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

var (
	black          = color.NRGBA{A: 0xff}
	transparent    = color.NRGBA{}
	placeholderBg  = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	placeholderInk = color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
)
