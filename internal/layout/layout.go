// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package layout converts template element geometry between template space
// (percentages of the original page size) and display space (pixels at the
// current zoom level). Everything here is a pure function of its inputs:
// drag and resize edits are recomputed from the final pixel box on every
// call, never accumulated as deltas.
package layout

import (
	"math"

	"storybook/internal/models"
)

const (
	// minSize is the smallest width/height percentage a resize may store.
	minSize = 0.1
	maxPct  = 100.0
)

// Dimensions is a page size in pixels (or points, for PDF output).
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an element's box in display space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DisplayContext pairs a template page's original size with the size it is
// currently shown at. Either may be nil while a template is still loading,
// in which case no geometry is produced.
type DisplayContext struct {
	Original *Dimensions
	Display  *Dimensions
}

// NewDisplayContext builds a context from two known sizes.
func NewDisplayContext(original, display Dimensions) DisplayContext {
	return DisplayContext{Original: &original, Display: &display}
}

// Available reports whether geometry can be computed at all.
func (c DisplayContext) Available() bool {
	return c.Original != nil && c.Display != nil &&
		positive(c.Original.Width) && positive(c.Original.Height) &&
		positive(c.Display.Width) && positive(c.Display.Height)
}

// ScaleRatio returns display/original per axis. When geometry is not
// available, including when the page is displayed at zero size, it returns
// (1, 1, false). An axis whose ratio overflows or underflows falls back to 1.
func (c DisplayContext) ScaleRatio() (sx, sy float64, ok bool) {
	if !c.Available() {
		return 1, 1, false
	}
	return ratio(c.Display.Width, c.Original.Width), ratio(c.Display.Height, c.Original.Height), true
}

// ToDisplayRect maps an element's stored percentages to a pixel box.
// The scale ratio is applied explicitly rather than multiplying by the
// display size directly so the inverse in FromDisplayDrag mirrors it step
// for step.
func (c DisplayContext) ToDisplayRect(el models.TemplateElement) (Rect, bool) {
	sx, sy, ok := c.ScaleRatio()
	if !ok {
		return Rect{}, false
	}
	ow, oh := c.Original.Width, c.Original.Height
	return Rect{
		X:      (el.X / 100) * ow * sx,
		Y:      (el.Y / 100) * oh * sy,
		Width:  (el.Width / 100) * ow * sx,
		Height: (el.Height / 100) * oh * sy,
	}, true
}

// FromDisplayDrag stores a dragged element's new pixel position back as
// percentages. Width and height are left as they were.
func (c DisplayContext) FromDisplayDrag(el models.TemplateElement, px, py float64) (models.TemplateElement, bool) {
	sx, sy, ok := c.ScaleRatio()
	if !ok || !finite(px) || !finite(py) {
		return el, false
	}
	el.X = clamp(toPercent(px, sx, c.Original.Width), 0, maxPct)
	el.Y = clamp(toPercent(py, sy, c.Original.Height), 0, maxPct)
	return el, true
}

// FromDisplayResize stores the final pixel box reported by a resize
// gesture. Position is clamped to [0,100] and size to [0.1,100] so an
// element can never collapse to zero area.
func (c DisplayContext) FromDisplayResize(el models.TemplateElement, px, py, pw, ph float64) (models.TemplateElement, bool) {
	sx, sy, ok := c.ScaleRatio()
	if !ok || !finite(px) || !finite(py) || !finite(pw) || !finite(ph) {
		return el, false
	}
	ow, oh := c.Original.Width, c.Original.Height
	el.X = clamp(toPercent(px, sx, ow), 0, maxPct)
	el.Y = clamp(toPercent(py, sy, oh), 0, maxPct)
	el.Width = clamp(toPercent(pw, sx, ow), minSize, maxPct)
	el.Height = clamp(toPercent(ph, sy, oh), minSize, maxPct)
	return el, true
}

func toPercent(pixels, scale, original float64) float64 {
	return (pixels / scale / original) * 100
}

func ratio(display, original float64) float64 {
	r := display / original
	if !usable(r) {
		return 1
	}
	return r
}

// usable reports whether v is a finite, non-zero number.
func usable(v float64) bool {
	return v != 0 && finite(v)
}

// positive reports whether v is a finite number above zero. A page shown
// at zero or negative size has no geometry.
func positive(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
