// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "strings"

// ElementType distinguishes what an element draws.
type ElementType string

const (
	ElementTypeText  ElementType = "text"
	ElementTypeImage ElementType = "image"
)

// Alignment is the horizontal alignment of a text element.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// TemplateElement is one placeable unit on a template page.
//
// X, Y, Width and Height are percentages (0-100) of the template's original
// page dimensions, never of the size the page is currently displayed at.
type TemplateElement struct {
	ID        string      `json:"id"`
	Type      ElementType `json:"type"`
	PageIndex int         `json:"pageIndex"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`

	// Variable binds the element to a story value. For images it names the
	// asset to resolve; for text the value replaces Content.
	Variable string `json:"variable,omitempty"`

	Content         string    `json:"content,omitempty"`
	FontFamily      string    `json:"fontFamily,omitempty"`
	FontSize        float64   `json:"fontSize,omitempty"`
	Bold            bool      `json:"bold,omitempty"`
	Italic          bool      `json:"italic,omitempty"`
	Underline       bool      `json:"underline,omitempty"`
	Strikethrough   bool      `json:"strikethrough,omitempty"`
	Color           string    `json:"color,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	Align           Alignment `json:"align,omitempty"`
}

// IsImage reports whether the element is an image placeholder.
func (e *TemplateElement) IsImage() bool {
	return e.Type == ElementTypeImage
}

// Text returns the string a text element renders for the given story
// values. A bound variable with a value wins; otherwise {{name}} tokens in
// Content are substituted.
func (e *TemplateElement) Text(values map[string]string) string {
	if e.Variable != "" {
		if v, ok := values[e.Variable]; ok && v != "" {
			return v
		}
	}
	if !strings.Contains(e.Content, "{{") || len(values) == 0 {
		return e.Content
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(e.Content)
}
