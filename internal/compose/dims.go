// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package compose

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"storybook/internal/models"
)

// pdfcpu is only used read-only here; it must not create a config
// directory in the user's home.
func init() {
	api.DisableConfigDir()
}

// PageDimensions returns the size of every page of a PDF, in points.
func PageDimensions(path string) ([]models.PageSize, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, ErrNoPages
	}
	pages := make([]models.PageSize, len(dims))
	for i, d := range dims {
		pages[i] = models.PageSize{Width: d.Width, Height: d.Height}
	}
	return pages, nil
}
