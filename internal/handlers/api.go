// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the storybook API.
// Handlers receive their dependencies through the API struct; each
// dependency is a small interface so tests can substitute fakes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storybook/internal/assets"
	"storybook/internal/models"
	"storybook/internal/uploads"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 2 << 20

// TemplateRepo is the template persistence the handlers need.
type TemplateRepo interface {
	List(ctx context.Context) ([]models.Template, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	Create(ctx context.Context, t *models.Template) (*models.Template, error)
	UpdateElements(ctx context.Context, id uuid.UUID, elements []models.TemplateElement, expectedVersion int) (*models.Template, error)
}

// StoryRepo is the story persistence the handlers need.
type StoryRepo interface {
	Create(ctx context.Context, st *models.Story) (*models.Story, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
}

// AssetResolver resolves, validates, and purges image assets.
type AssetResolver interface {
	Resolve(ctx context.Context, variableName, value string, explicit []string) assets.Result
	Validate(path string) assets.Validation
	PurgeStale(ctx context.Context, maxAgeDays int) (int, error)
	Dirs() assets.Dirs
}

// Uploader stores uploaded images.
type Uploader interface {
	Save(ctx context.Context, variableName string, src io.Reader) (*uploads.Upload, error)
}

// Publisher copies finished books to object storage.
type Publisher interface {
	PublishFile(ctx context.Context, localPath, contentType string) (string, error)
}

// Deps lists the API dependencies. Publisher may be nil.
type Deps struct {
	Templates      TemplateRepo
	Stories        StoryRepo
	Resolver       AssetResolver
	Uploader       Uploader
	Publisher      Publisher
	PublicBaseURL  string
	MaxUploadBytes int64
	PurgeMaxAge    int
}

// API groups the JSON API handlers and their dependencies.
type API struct {
	templates      TemplateRepo
	stories        StoryRepo
	resolver       AssetResolver
	uploader       Uploader
	publisher      Publisher
	baseURL        string
	maxUploadBytes int64
	purgeMaxAge    int
}

// NewAPI creates the API handler group.
func NewAPI(d Deps) *API {
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &API{
		templates:      d.Templates,
		stories:        d.Stories,
		resolver:       d.Resolver,
		uploader:       d.Uploader,
		publisher:      d.Publisher,
		baseURL:        d.PublicBaseURL,
		maxUploadBytes: maxUpload,
		purgeMaxAge:    d.PurgeMaxAge,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseID reads a UUID route parameter.
func parseID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
