// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storybook/internal/layout"
	"storybook/internal/models"
)

type layoutRequest struct {
	PageIndex     int     `json:"pageIndex"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	SelectedID    string  `json:"selectedId"`
}

type layoutResponse struct {
	PageIndex  int                `json:"pageIndex"`
	Available  bool               `json:"available"`
	ScaleX     float64            `json:"scaleX"`
	ScaleY     float64            `json:"scaleY"`
	Original   layout.Dimensions  `json:"original"`
	Placements []layout.Placement `json:"placements"`
}

type dragRequest struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
}

type resizeRequest struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
}

// gesture is a drag or resize request; both carry the size the page was
// shown at when the gesture ended.
type gesture interface {
	displaySize() (width, height float64)
}

func (d *dragRequest) displaySize() (float64, float64)   { return d.DisplayWidth, d.DisplayHeight }
func (d *resizeRequest) displaySize() (float64, float64) { return d.DisplayWidth, d.DisplayHeight }

// displayContext pairs a page's stored size with the size the editor shows
// it at. A zero display size means the page has not been measured yet.
func displayContext(t *models.Template, pageIndex int, displayW, displayH float64) layout.DisplayContext {
	var c layout.DisplayContext
	if page, ok := t.PageDimensions(pageIndex); ok {
		c.Original = &layout.Dimensions{Width: page.Width, Height: page.Height}
	}
	if displayW > 0 && displayH > 0 {
		c.Display = &layout.Dimensions{Width: displayW, Height: displayH}
	}
	return c
}

// Layout returns the display boxes of one page's elements in draw order.
// When the page cannot be measured the placement list is empty.
func (a *API) Layout(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}
	var req layoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PageIndex < 0 || req.PageIndex >= t.PageCount() {
		writeError(w, "Page index out of range.", http.StatusBadRequest)
		return
	}

	c := displayContext(t, req.PageIndex, req.DisplayWidth, req.DisplayHeight)
	sx, sy, available := c.ScaleRatio()
	resp := layoutResponse{
		PageIndex:  req.PageIndex,
		Available:  available,
		ScaleX:     sx,
		ScaleY:     sy,
		Placements: c.Layout(t.Elements, req.PageIndex, req.SelectedID),
	}
	if c.Original != nil {
		resp.Original = *c.Original
	}
	if resp.Placements == nil {
		resp.Placements = []layout.Placement{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DragElement stores the pixel position an element was dropped at.
func (a *API) DragElement(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	a.moveElement(w, r, &req, func(c layout.DisplayContext, el models.TemplateElement) (models.TemplateElement, bool) {
		return c.FromDisplayDrag(el, req.X, req.Y)
	})
}

// ResizeElement stores the pixel box an element was resized to.
func (a *API) ResizeElement(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	a.moveElement(w, r, &req, func(c layout.DisplayContext, el models.TemplateElement) (models.TemplateElement, bool) {
		return c.FromDisplayResize(el, req.X, req.Y, req.Width, req.Height)
	})
}

// moveElement decodes req, applies the gesture to the {elementId} element,
// and persists the result guarded by the template version that was read.
func (a *API) moveElement(
	w http.ResponseWriter, r *http.Request, req gesture,
	apply func(layout.DisplayContext, models.TemplateElement) (models.TemplateElement, bool),
) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}
	if err := decodeJSON(w, r, req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	idx := t.ElementIndex(chi.URLParam(r, "elementId"))
	if idx < 0 {
		writeError(w, "Element not found.", http.StatusNotFound)
		return
	}

	el := t.Elements[idx]
	dw, dh := req.displaySize()
	moved, ok := apply(displayContext(t, el.PageIndex, dw, dh), el)
	if !ok {
		writeError(w, "Page geometry is not available or the position is not a number.", http.StatusUnprocessableEntity)
		return
	}

	elements := make([]models.TemplateElement, len(t.Elements))
	copy(elements, t.Elements)
	elements[idx] = moved
	if _, ok := a.saveElements(w, r, t, elements, t.Version); !ok {
		return
	}
	writeJSON(w, http.StatusOK, moved)
}
