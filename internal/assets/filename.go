// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package assets

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// imageExtensions are the file extensions eligible as image assets.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImageFile reports whether name carries a recognized image extension.
// The comparison is case-insensitive.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Filename returns the final path segment of a candidate, which may be a
// filesystem path, a URL path, or an absolute URL. Query strings and
// fragments are ignored.
func Filename(candidate string) string {
	if strings.Contains(candidate, "://") {
		if u, err := url.Parse(candidate); err == nil {
			candidate = u.Path
		}
	} else if i := strings.IndexAny(candidate, "?#"); i >= 0 {
		candidate = candidate[:i]
	}
	candidate = strings.ReplaceAll(candidate, `\`, "/")
	base := path.Base(candidate)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// BaseFilename strips the "-timestamp-random" suffix uploads are stored
// with: "hero-1700000000000-123456789.png" becomes "hero.png". Names with
// fewer than three hyphen-separated segments are returned unchanged.
//
// A variable name that itself contains hyphens is indistinguishable from
// the suffix and is cut at its first hyphen.
func BaseFilename(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return name
	}
	return parts[0] + filepath.Ext(name)
}

// variablePrefix is the prefix uploaded files for variableName start with.
// An empty variable name has no prefix.
func variablePrefix(variableName string) string {
	if variableName == "" {
		return ""
	}
	return variableName + "-"
}

func hasVariablePrefix(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix)
}
