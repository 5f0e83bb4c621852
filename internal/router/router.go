// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// storybook service: the JSON API under /api and static serving of the
// generated previews and books under /files.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"storybook/internal/assets"
	"storybook/internal/handlers"
	"storybook/internal/middleware"
)

// Limits holds the request budgets for the expensive endpoints. A nil
// limiter leaves its endpoint unthrottled.
type Limits struct {
	Uploads *middleware.RateLimiter
	Stories *middleware.RateLimiter
}

// New creates the configured Chi router.
func New(api *handlers.API, dirs assets.Dirs, limits Limits) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", api.ListTemplates)
			r.Post("/", api.ImportTemplate)
			r.Get("/{id}", api.GetTemplate)
			r.Put("/{id}/elements", api.UpdateElements)

			// Editor geometry
			r.Post("/{id}/layout", api.Layout)
			r.Post("/{id}/elements/{elementId}/drag", api.DragElement)
			r.Post("/{id}/elements/{elementId}/resize", api.ResizeElement)
		})

		r.With(throttle(limits.Uploads)).Post("/uploads", api.UploadImage)
		r.With(throttle(limits.Stories)).Post("/stories", api.CreateStory)
		r.Get("/stories/{id}", api.GetStory)

		r.Post("/resolve", api.Resolve)
		r.Post("/validate", api.ValidateAsset)
		r.Post("/maintenance/purge", api.Purge)
	})

	fileServer(r, handlers.PreviewsURLPrefix, dirs.Previews)
	fileServer(r, handlers.DocumentsURLPrefix, dirs.Documents)

	return r
}

// throttle returns rl's middleware, or a pass-through when rl is nil.
func throttle(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// fileServer serves the files in dir under prefix. Directory listings are
// not exposed.
func fileServer(r chi.Router, prefix, dir string) {
	if dir == "" {
		return
	}
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		fs.ServeHTTP(w, req)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
