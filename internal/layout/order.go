// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package layout

import "storybook/internal/models"

// Placement is an element together with its display box, in draw order.
type Placement struct {
	Element  models.TemplateElement `json:"element"`
	Rect     Rect                   `json:"rect"`
	Selected bool                   `json:"selected"`
}

// RenderOrder returns the elements in draw order: the selected element
// last (topmost), every other element in the order it was supplied. The
// input slice is not modified.
func RenderOrder(elements []models.TemplateElement, selectedID string) []models.TemplateElement {
	out := make([]models.TemplateElement, 0, len(elements))
	var selected []models.TemplateElement
	for _, el := range elements {
		if selectedID != "" && el.ID == selectedID {
			selected = append(selected, el)
			continue
		}
		out = append(out, el)
	}
	return append(out, selected...)
}

// Layout positions the elements of one page for display. It returns nil
// when the context has no usable geometry, so nothing is drawn or made
// interactive while a page is still loading.
func (c DisplayContext) Layout(elements []models.TemplateElement, pageIndex int, selectedID string) []Placement {
	if !c.Available() {
		return nil
	}
	var page []models.TemplateElement
	for _, el := range elements {
		if el.PageIndex == pageIndex {
			page = append(page, el)
		}
	}
	placements := make([]Placement, 0, len(page))
	for _, el := range RenderOrder(page, selectedID) {
		rect, ok := c.ToDisplayRect(el)
		if !ok {
			continue
		}
		placements = append(placements, Placement{
			Element:  el,
			Rect:     rect,
			Selected: selectedID != "" && el.ID == selectedID,
		})
	}
	return placements
}
