// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package assets

import (
	"fmt"
	"os"
)

// Dirs holds the storage directories scanned during resolution.
type Dirs struct {
	RecentUploads  string // temp images from the customization form; purged periodically
	TemplateAssets string // images shipped with templates
	Uploads        string // generic uploads
	Previews       string // rendered story previews
	Documents      string // generated PDFs
}

// Ordered returns the directories in the fixed fallback order used by the
// exhaustive scan. Empty entries are dropped.
func (d Dirs) Ordered() []string {
	all := []string{d.RecentUploads, d.TemplateAssets, d.Uploads, d.Previews, d.Documents}
	out := all[:0]
	for _, dir := range all {
		if dir != "" {
			out = append(out, dir)
		}
	}
	return out
}

// EnsureDirs creates every configured directory that does not exist yet.
// It is idempotent.
func EnsureDirs(d Dirs) error {
	for _, dir := range d.Ordered() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	return nil
}
