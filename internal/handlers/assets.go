// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"storybook/internal/assets"
	"storybook/internal/middleware"
	"storybook/internal/uploads"
)

type resolveRequest struct {
	VariableName string   `json:"variableName"`
	Value        string   `json:"value"`
	UploadedURLs []string `json:"uploadedUrls"`
}

type validateRequest struct {
	Path string `json:"path"`
}

// UploadImage stores an image for a template variable. The stored filename
// is returned so the client can submit it as the variable's value.
func (a *API) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes+1024)
	if err := r.ParseMultipartForm(a.maxUploadBytes); err != nil {
		writeError(w, "File too large.", http.StatusRequestEntityTooLarge)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file provided.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	up, err := a.uploader.Save(r.Context(), r.FormValue("variable"), file)
	switch {
	case errors.Is(err, uploads.ErrNoVariable):
		writeError(w, "A variable name is required.", http.StatusBadRequest)
		return
	case errors.Is(err, uploads.ErrTooLarge):
		writeError(w, "File too large.", http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, uploads.ErrNotImage):
		writeError(w, "File is not a supported image (jpg, png, gif, webp).", http.StatusUnsupportedMediaType)
		return
	case err != nil:
		middleware.Log(r.Context()).Error("upload failed", "error", err)
		writeError(w, "Failed to store upload.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// Resolve finds the image for one variable. A miss is not an HTTP error;
// the result carries found=false and a message.
func (a *API) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.VariableName) == "" {
		writeError(w, "variableName is required.", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, a.resolver.Resolve(r.Context(), req.VariableName, req.Value, req.UploadedURLs))
}

// ValidateAsset checks a stored file before it is used in a book.
func (a *API) ValidateAsset(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	path, ok := withinDirs(a.resolver.Dirs(), req.Path)
	if !ok {
		writeError(w, "Path is outside the storage directories.", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, a.resolver.Validate(path))
}

// Purge deletes recent uploads older than ?days=N, defaulting to the
// configured age.
func (a *API) Purge(w http.ResponseWriter, r *http.Request) {
	days := a.purgeMaxAge
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "days must be a non-negative integer.", http.StatusBadRequest)
			return
		}
		days = n
	}
	removed, err := a.resolver.PurgeStale(r.Context(), days)
	if err != nil {
		middleware.Log(r.Context()).Error("purge failed", "error", err, "removed", removed)
		writeError(w, "Purge failed.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed, "days": days})
}

// withinDirs cleans p and reports whether it lies inside one of the
// storage directories. Relative paths are taken relative to the working
// directory, like the configured directories themselves.
func withinDirs(dirs assets.Dirs, p string) (string, bool) {
	if strings.TrimSpace(p) == "" {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	for _, dir := range dirs.Ordered() {
		root, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.Join(dir, rel), true
	}
	return "", false
}
