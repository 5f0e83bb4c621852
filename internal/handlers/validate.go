// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"storybook/internal/models"
)

// Validation limits for template fields.
const (
	maxTemplateNameLen = 200
	maxDescriptionLen  = 10_000
	maxElements        = 500
	maxElementIDLen    = 100
	maxVariableLen     = 100
	maxContentLen      = 5_000
	maxFontSize        = 500
	maxValueLen        = 2_000
	maxValues          = 200
)

// validateTemplate checks template import inputs and returns the first error found.
func validateTemplate(name, description string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Template name is required."
	}
	if utf8.RuneCountInString(name) > maxTemplateNameLen {
		return "Template name is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 10,000 characters)."
	}
	return ""
}

// validateElements checks an element list against the template's pages and
// returns the first error found.
func validateElements(elements []models.TemplateElement, pageCount int) string {
	if len(elements) > maxElements {
		return "Too many elements (max 500)."
	}
	seen := make(map[string]bool, len(elements))
	for i, el := range elements {
		if msg := validateElement(el, pageCount); msg != "" {
			return fmt.Sprintf("Element %d: %s", i+1, msg)
		}
		if seen[el.ID] {
			return fmt.Sprintf("Element %d: duplicate id %q.", i+1, el.ID)
		}
		seen[el.ID] = true
	}
	return ""
}

func validateElement(el models.TemplateElement, pageCount int) string {
	id := strings.TrimSpace(el.ID)
	if id == "" {
		return "id is required."
	}
	if utf8.RuneCountInString(id) > maxElementIDLen {
		return "id is too long (max 100 characters)."
	}
	switch el.Type {
	case models.ElementTypeText, models.ElementTypeImage:
	default:
		return fmt.Sprintf("unknown type %q.", el.Type)
	}
	if el.PageIndex < 0 || el.PageIndex >= pageCount {
		return fmt.Sprintf("page index %d out of range.", el.PageIndex)
	}
	for _, v := range []float64{el.X, el.Y, el.Width, el.Height, el.FontSize} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "geometry must be finite."
		}
	}
	if el.X < 0 || el.X > 100 || el.Y < 0 || el.Y > 100 {
		return "position must be between 0 and 100."
	}
	if el.Width < 0.1 || el.Width > 100 || el.Height < 0.1 || el.Height > 100 {
		return "size must be between 0.1 and 100."
	}
	if el.FontSize < 0 || el.FontSize > maxFontSize {
		return "font size must be between 0 and 500."
	}
	if el.IsImage() && strings.TrimSpace(el.Variable) == "" {
		return "image elements need a variable."
	}
	if utf8.RuneCountInString(el.Variable) > maxVariableLen {
		return "variable is too long (max 100 characters)."
	}
	if utf8.RuneCountInString(el.Content) > maxContentLen {
		return "content is too long (max 5,000 characters)."
	}
	switch el.Align {
	case "", models.AlignLeft, models.AlignCenter, models.AlignRight:
	default:
		return fmt.Sprintf("unknown alignment %q.", el.Align)
	}
	return ""
}

// validateValues checks the story values submitted by the customization form.
func validateValues(values map[string]string) string {
	if len(values) > maxValues {
		return "Too many values (max 200)."
	}
	for k, v := range values {
		if k == "" {
			return "Value names must not be empty."
		}
		if utf8.RuneCountInString(v) > maxValueLen {
			return fmt.Sprintf("Value %q is too long (max 2,000 characters).", k)
		}
	}
	return ""
}
