// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storybook/internal/assets"
	"storybook/internal/compose"
	"storybook/internal/middleware"
	"storybook/internal/models"
)

// resolveWorkers bounds concurrent resolutions per story.
const resolveWorkers = 4

// Public URL prefixes of the generated outputs, served by the router.
const (
	PreviewsURLPrefix  = "/files/previews/"
	DocumentsURLPrefix = "/files/documents/"
)

type createStoryRequest struct {
	TemplateID   uuid.UUID         `json:"templateId"`
	Values       map[string]string `json:"values"`
	UploadedURLs []string          `json:"uploadedUrls"`
	Publish      bool              `json:"publish"`
}

type storyResponse struct {
	*models.Story
	PreviewURL  string                   `json:"preview_url"`
	DocumentURL string                   `json:"document_url"`
	Resolutions map[string]assets.Result `json:"resolutions,omitempty"`
}

// CreateStory personalizes a template: every image variable is resolved,
// then a preview of the first page and the full PDF are written. Variables
// that cannot be resolved are drawn as placeholders and listed in the
// story's unresolved field.
func (a *API) CreateStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := middleware.Log(ctx)

	var req createStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if msg := validateValues(req.Values); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}
	t, err := a.templates.FindByID(ctx, req.TemplateID)
	if err != nil {
		log.Error("failed to load template", "error", err, "template", req.TemplateID)
		writeError(w, "Failed to load template.", http.StatusInternalServerError)
		return
	}
	if t == nil {
		writeError(w, "Template not found.", http.StatusNotFound)
		return
	}

	results, err := a.resolveAll(ctx, t.ImageVariables(), req.Values, req.UploadedURLs)
	if err != nil {
		writeError(w, "Request cancelled.", http.StatusServiceUnavailable)
		return
	}

	dirs := a.resolver.Dirs()
	images := make(map[string]string, len(results))
	var unresolved []string
	for _, name := range t.ImageVariables() {
		res := results[name]
		if p, ok := localAsset(dirs, res.Path); res.Found && ok {
			images[name] = p
			continue
		}
		unresolved = append(unresolved, name)
	}

	id := uuid.New()
	pdfName := "story-" + id.String() + ".pdf"
	previewName := "story-" + id.String() + ".png"
	book := compose.Book{
		Template: t,
		Values:   req.Values,
		Images:   images,
		ShareURL: strings.TrimRight(a.baseURL, "/") + DocumentsURLPrefix + pdfName,
	}

	pdfPath := filepath.Join(dirs.Documents, pdfName)
	if err := compose.WritePDF(pdfPath, book); err != nil {
		log.Error("failed to write story pdf", "error", err, "template", t.ID)
		writeError(w, "Failed to generate the book.", http.StatusInternalServerError)
		return
	}
	previewPath := filepath.Join(dirs.Previews, previewName)
	if err := compose.WritePreview(previewPath, book, 0, compose.PreviewOptions{}); err != nil {
		os.Remove(pdfPath)
		log.Error("failed to write story preview", "error", err, "template", t.ID)
		writeError(w, "Failed to generate the preview.", http.StatusInternalServerError)
		return
	}

	story := &models.Story{
		ID:          id,
		TemplateID:  t.ID,
		Values:      req.Values,
		PreviewPath: previewPath,
		PDFPath:     pdfPath,
		Unresolved:  unresolved,
	}
	if req.Publish && a.publisher != nil {
		url, err := a.publisher.PublishFile(ctx, pdfPath, "application/pdf")
		if err != nil {
			// The local copy is still served; publishing can be retried.
			log.Warn("failed to publish story pdf", "error", err, "story", id)
		} else {
			story.PDFURL = &url
		}
	}

	created, err := a.stories.Create(ctx, story)
	if err != nil {
		os.Remove(pdfPath)
		os.Remove(previewPath)
		log.Error("failed to save story", "error", err)
		writeError(w, "Failed to save story.", http.StatusInternalServerError)
		return
	}
	log.Info("story generated", "story", created.ID, "template", t.ID, "unresolved", len(unresolved))

	resp := a.newStoryResponse(created)
	resp.Resolutions = results
	writeJSON(w, http.StatusCreated, resp)
}

// GetStory returns a generated story.
func (a *API) GetStory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, "Invalid story ID.", http.StatusBadRequest)
		return
	}
	story, err := a.stories.FindByID(r.Context(), id)
	if err != nil {
		middleware.Log(r.Context()).Error("failed to load story", "error", err, "story", id)
		writeError(w, "Failed to load story.", http.StatusInternalServerError)
		return
	}
	if story == nil {
		writeError(w, "Story not found.", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.newStoryResponse(story))
}

func (a *API) newStoryResponse(s *models.Story) storyResponse {
	return storyResponse{
		Story:       s,
		PreviewURL:  PreviewsURLPrefix + filepath.Base(s.PreviewPath),
		DocumentURL: DocumentsURLPrefix + filepath.Base(s.PDFPath),
	}
}

// resolveAll resolves the named variables concurrently. The only error is
// cancellation of ctx.
func (a *API) resolveAll(ctx context.Context, names []string, values map[string]string, explicit []string) (map[string]assets.Result, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]assets.Result, len(names))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for _, name := range names {
		g.Go(func() error {
			res := a.resolver.Resolve(gctx, name, values[name], explicit)
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// localAsset maps a resolved path to a file on disk. Explicit candidates
// may be URLs or client-side paths; those are looked up by filename in the
// storage directories.
func localAsset(dirs assets.Dirs, p string) (string, bool) {
	if p == "" {
		return "", false
	}
	if local, ok := withinDirs(dirs, p); ok && isFile(local) {
		return local, true
	}
	name := assets.Filename(p)
	if name == "" || name == ".." || name != filepath.Base(name) {
		return "", false
	}
	for _, dir := range dirs.Ordered() {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
