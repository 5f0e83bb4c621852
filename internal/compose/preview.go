// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package compose

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"storybook/internal/layout"
	"storybook/internal/models"
)

// DefaultPreviewWidth is the pixel width of a page preview.
const DefaultPreviewWidth = 800

// PreviewOptions controls a page preview.
type PreviewOptions struct {
	// Width of the output in pixels; the height follows the page aspect.
	Width int
	// Background is an optional raster of the page to draw elements over.
	Background string
	// SelectedID is drawn last and outlined, as in the editor.
	SelectedID string
}

// Preview renders one page of the book to an image. Text is drawn with a
// fixed bitmap face, so the preview shows placement rather than typography.
func Preview(b Book, pageIndex int, opts PreviewOptions) (*image.NRGBA, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	page, ok := b.Template.PageDimensions(pageIndex)
	if !ok {
		return nil, fmt.Errorf("page %d out of range (template has %d)", pageIndex, b.Template.PageCount())
	}
	width := opts.Width
	if width <= 0 {
		width = DefaultPreviewWidth
	}
	height := int(math.Round(float64(width) * page.Height / page.Width))
	if height < 1 {
		return nil, fmt.Errorf("page %d has unusable size %vx%v", pageIndex, page.Width, page.Height)
	}

	canvas := imaging.New(width, height, color.White)
	if opts.Background != "" {
		bg, err := loadFitted(opts.Background, width, height)
		if err != nil {
			return nil, fmt.Errorf("preview background: %w", err)
		}
		canvas = imaging.Overlay(canvas, bg, image.Pt(0, 0), 1)
	}

	ctx := layout.NewDisplayContext(
		layout.Dimensions{Width: page.Width, Height: page.Height},
		layout.Dimensions{Width: float64(width), Height: float64(height)},
	)
	for _, p := range ctx.Layout(b.Template.Elements, pageIndex, opts.SelectedID) {
		box := pixelBox(p.Rect)
		if box.Empty() {
			continue
		}
		switch p.Element.Type {
		case models.ElementTypeImage:
			canvas = drawPreviewImage(canvas, b, p.Element, box)
		default:
			drawPreviewText(canvas, p.Element, box, p.Element.Text(b.Values))
		}
		if p.Selected {
			outline(canvas, box, color.NRGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff})
		}
	}
	return canvas, nil
}

// WritePreview renders a page preview to path; the format follows the
// file extension.
func WritePreview(path string, b Book, pageIndex int, opts PreviewOptions) error {
	img, err := Preview(b, pageIndex, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

func pixelBox(r layout.Rect) image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	return image.Rect(x0, y0, x0+int(math.Round(r.Width)), y0+int(math.Round(r.Height)))
}

func drawPreviewImage(canvas *image.NRGBA, b Book, el models.TemplateElement, box image.Rectangle) *image.NRGBA {
	if path, ok := b.Images[el.Variable]; ok && path != "" {
		img, err := loadFitted(path, box.Dx(), box.Dy())
		if err == nil {
			return imaging.Overlay(canvas, img, box.Min, 1)
		}
		slog.Warn("preview image not placed", "variable", el.Variable, "path", path, "error", err)
	}
	fillRect(canvas, box, placeholderBg)
	outline(canvas, box, placeholderInk)
	drawLines(canvas, box, []string{el.Variable}, placeholderInk, true)
	return canvas
}

func drawPreviewText(canvas *image.NRGBA, el models.TemplateElement, box image.Rectangle, text string) {
	if bg := parseColor(el.BackgroundColor, transparent); bg.A != 0 {
		fillRect(canvas, box, bg)
	}
	face := basicfont.Face7x13
	maxChars := box.Dx() / face.Advance
	if maxChars < 1 {
		return
	}
	lines := wrap(text, maxChars)
	drawLines(canvas, box, lines, parseColor(el.Color, black), el.Align == models.AlignCenter)
}

// drawLines writes lines top-down inside box, clipped to it. A single
// centered line is also centered vertically.
func drawLines(canvas *image.NRGBA, box image.Rectangle, lines []string, c color.NRGBA, center bool) {
	face := basicfont.Face7x13
	clip := canvas.SubImage(box).(*image.NRGBA)
	d := &font.Drawer{Dst: clip, Src: image.NewUniform(c), Face: face}

	y := box.Min.Y + face.Ascent
	if center && len(lines) == 1 {
		y = box.Min.Y + (box.Dy()+face.Ascent)/2
	}
	for _, line := range lines {
		if y > box.Max.Y {
			break
		}
		x := box.Min.X
		if center {
			x += (box.Dx() - d.MeasureString(line).Round()) / 2
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		y += face.Height
	}
}

// wrap breaks text into lines of at most width characters on word
// boundaries, honoring explicit newlines. Words longer than width are cut.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var line []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(line) > 0 {
					lines = append(lines, string(line))
					line = nil
				}
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(line) == 0:
				line = w
			case len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
			default:
				lines = append(lines, string(line))
				line = w
			}
		}
		lines = append(lines, string(line))
	}
	return lines
}

func fillRect(canvas *image.NRGBA, box image.Rectangle, c color.NRGBA) {
	draw.Draw(canvas, box, image.NewUniform(c), image.Point{}, draw.Over)
}

func outline(canvas *image.NRGBA, box image.Rectangle, c color.NRGBA) {
	u := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+1),
		image.Rect(box.Min.X, box.Max.Y-1, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+1, box.Max.Y),
		image.Rect(box.Max.X-1, box.Min.Y, box.Max.X, box.Max.Y),
	} {
		draw.Draw(canvas, edge, u, image.Point{}, draw.Src)
	}
}
