// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Story is one generated, personalized book.
type Story struct {
	ID          uuid.UUID         `json:"id"`
	TemplateID  uuid.UUID         `json:"template_id"`
	Values      map[string]string `json:"values"`
	PreviewPath string            `json:"preview_path"`
	PDFPath     string            `json:"pdf_path"`
	PDFURL      *string           `json:"pdf_url,omitempty"` // set when published to object storage
	Unresolved  []string          `json:"unresolved,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Complete reports whether every image variable resolved to an asset.
func (s *Story) Complete() bool {
	return len(s.Unresolved) == 0
}
