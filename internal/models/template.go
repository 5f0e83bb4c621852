// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PageSize is the native size of one template page. For imported PDFs the
// unit is PDF points, which is also the pixel size of the page rendered at
// scale 1, so it doubles as the original dimensions in the editor.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Template is a storybook layout: a source PDF plus the positioned text and
// image elements that are filled in for each generated story.
type Template struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"` // Markdown
	SourcePDF   string            `json:"source_pdf"`
	Pages       []PageSize        `json:"pages"`
	Elements    []TemplateElement `json:"elements"`
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PageCount returns the number of pages in the source document.
func (t *Template) PageCount() int {
	return len(t.Pages)
}

// PageDimensions returns the original size of the page at pageIndex.
func (t *Template) PageDimensions(pageIndex int) (PageSize, bool) {
	if pageIndex < 0 || pageIndex >= len(t.Pages) {
		return PageSize{}, false
	}
	return t.Pages[pageIndex], true
}

// ElementIndex returns the position of the element with the given ID in
// Elements, or -1.
func (t *Template) ElementIndex(id string) int {
	for i := range t.Elements {
		if t.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// ElementsOnPage returns the elements placed on pageIndex, in stored order.
func (t *Template) ElementsOnPage(pageIndex int) []TemplateElement {
	var out []TemplateElement
	for _, el := range t.Elements {
		if el.PageIndex == pageIndex {
			out = append(out, el)
		}
	}
	return out
}

// ImageVariables returns the distinct variable names bound to image
// elements, in first-seen order.
func (t *Template) ImageVariables() []string {
	seen := make(map[string]bool)
	var names []string
	for _, el := range t.Elements {
		if el.Type != ElementTypeImage || el.Variable == "" || seen[el.Variable] {
			continue
		}
		seen[el.Variable] = true
		names = append(names, el.Variable)
	}
	return names
}
