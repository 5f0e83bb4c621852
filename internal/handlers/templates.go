// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"

	"storybook/internal/compose"
	"storybook/internal/markdown"
	"storybook/internal/middleware"
	"storybook/internal/models"
	"storybook/internal/store"
)

// maxTemplatePDF bounds the size of an imported template PDF.
const maxTemplatePDF = 50 << 20

// templateView is a template as returned by the API, with its description
// rendered to HTML.
type templateView struct {
	*models.Template
	DescriptionHTML string `json:"description_html"`
}

func newTemplateView(t *models.Template) templateView {
	html, err := markdown.ToHTML(t.Description)
	if err != nil {
		html = ""
	}
	return templateView{Template: t, DescriptionHTML: html}
}

// ListTemplates returns every template, newest first.
func (a *API) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := a.templates.List(r.Context())
	if err != nil {
		middleware.Log(r.Context()).Error("failed to list templates", "error", err)
		writeError(w, "Failed to list templates.", http.StatusInternalServerError)
		return
	}
	views := make([]templateView, 0, len(templates))
	for i := range templates {
		views = append(views, newTemplateView(&templates[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetTemplate returns one template with its elements.
func (a *API) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newTemplateView(t))
}

// ImportTemplate creates a template from an uploaded PDF. Page sizes are
// read from the PDF; the element list starts empty.
func (a *API) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	log := middleware.Log(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxTemplatePDF+1024)
	if err := r.ParseMultipartForm(maxTemplatePDF); err != nil {
		writeError(w, "File too large. Maximum size is 50 MB.", http.StatusRequestEntityTooLarge)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	description := r.FormValue("description")
	if msg := validateTemplate(name, description); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file provided.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, "Failed to read file.", http.StatusInternalServerError)
		return
	}
	if kind, _ := filetype.Match(data); kind.MIME.Value != "application/pdf" {
		writeError(w, "Template source must be a PDF.", http.StatusUnsupportedMediaType)
		return
	}

	dir := a.resolver.Dirs().TemplateAssets
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("failed to create template dir", "error", err, "dir", dir)
		writeError(w, "Failed to store template.", http.StatusInternalServerError)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.pdf", slug.Make(name), uuid.New()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error("failed to write template pdf", "error", err, "path", path)
		writeError(w, "Failed to store template.", http.StatusInternalServerError)
		return
	}

	pages, err := compose.PageDimensions(path)
	if err != nil || len(pages) == 0 {
		os.Remove(path)
		log.Warn("unreadable template pdf", "error", err)
		writeError(w, "Could not read pages from the PDF.", http.StatusUnprocessableEntity)
		return
	}

	created, err := a.templates.Create(r.Context(), &models.Template{
		Name:        name,
		Description: description,
		SourcePDF:   path,
		Pages:       pages,
	})
	if err != nil {
		os.Remove(path)
		log.Error("failed to create template", "error", err)
		writeError(w, "Failed to create template.", http.StatusInternalServerError)
		return
	}
	log.Info("template imported", "id", created.ID, "pages", len(pages))
	writeJSON(w, http.StatusCreated, newTemplateView(created))
}

type updateElementsRequest struct {
	Elements []models.TemplateElement `json:"elements"`
	Version  int                      `json:"version"`
}

// UpdateElements replaces a template's element list. A non-zero version
// must match the stored one.
func (a *API) UpdateElements(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}
	var req updateElementsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if msg := validateElements(req.Elements, t.PageCount()); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}
	if updated, ok := a.saveElements(w, r, t, req.Elements, req.Version); ok {
		writeJSON(w, http.StatusOK, newTemplateView(updated))
	}
}

// saveElements persists elements, writing the error response on failure.
func (a *API) saveElements(w http.ResponseWriter, r *http.Request, t *models.Template, elements []models.TemplateElement, version int) (*models.Template, bool) {
	updated, err := a.templates.UpdateElements(r.Context(), t.ID, elements, version)
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, "Template was modified by someone else. Reload and try again.", http.StatusConflict)
		return nil, false
	case err != nil:
		middleware.Log(r.Context()).Error("failed to update elements", "error", err, "template", t.ID)
		writeError(w, "Failed to save elements.", http.StatusInternalServerError)
		return nil, false
	case updated == nil:
		writeError(w, "Template not found.", http.StatusNotFound)
		return nil, false
	}
	return updated, true
}

// loadTemplate reads the {id} route parameter and fetches the template,
// writing the error response itself when it cannot.
func (a *API) loadTemplate(w http.ResponseWriter, r *http.Request) (*models.Template, bool) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, "Invalid template ID.", http.StatusBadRequest)
		return nil, false
	}
	t, err := a.templates.FindByID(r.Context(), id)
	if err != nil {
		middleware.Log(r.Context()).Error("failed to load template", "error", err, "template", id)
		writeError(w, "Failed to load template.", http.StatusInternalServerError)
		return nil, false
	}
	if t == nil {
		writeError(w, "Template not found.", http.StatusNotFound)
		return nil, false
	}
	return t, true
}
