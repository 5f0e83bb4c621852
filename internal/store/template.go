// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storybook/internal/models"
)

// ErrVersionConflict is returned by UpdateElements when the stored template
// changed since the caller read it.
var ErrVersionConflict = errors.New("template was modified concurrently")

// TemplateStore handles all template-related database operations. Pages and
// elements are stored as JSONB documents on the template row.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, name, description, source_pdf, pages, elements, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	t := &models.Template{}
	var pages, elements []byte
	if err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.SourcePDF, &pages, &elements,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pages, &t.Pages); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	if err := json.Unmarshal(elements, &t.Elements); err != nil {
		return nil, fmt.Errorf("decode elements: %w", err)
	}
	return t, nil
}

// List returns all templates, newest first.
func (s *TemplateStore) List(ctx context.Context) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// FindByID retrieves a template by its UUID. Returns nil if not found.
func (s *TemplateStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// Create inserts a new template at version 1.
func (s *TemplateStore) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	pages, elements, err := encodeTemplateDocs(t)
	if err != nil {
		return nil, err
	}
	result, err := scanTemplate(s.db.QueryRowContext(ctx, `
		INSERT INTO templates (name, description, source_pdf, pages, elements, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING `+templateColumns,
		t.Name, t.Description, t.SourcePDF, pages, elements,
	))
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return result, nil
}

// UpdateElements replaces the element list and increments the version.
// expectedVersion guards against lost updates; pass 0 to skip the check.
// Returns nil if the template does not exist.
func (s *TemplateStore) UpdateElements(ctx context.Context, id uuid.UUID, elements []models.TemplateElement, expectedVersion int) (*models.Template, error) {
	if elements == nil {
		elements = []models.TemplateElement{}
	}
	doc, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("encode elements: %w", err)
	}

	result, err := scanTemplate(s.db.QueryRowContext(ctx, `
		UPDATE templates SET
			elements = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND ($3 = 0 OR version = $3)
		RETURNING `+templateColumns,
		string(doc), id, expectedVersion,
	))
	if errors.Is(err, sql.ErrNoRows) {
		if expectedVersion == 0 {
			return nil, nil
		}
		existing, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update template elements: %w", err)
	}
	return result, nil
}

// Delete removes a template by ID. Stories generated from it are removed
// by the foreign key cascade.
func (s *TemplateStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func encodeTemplateDocs(t *models.Template) (string, string, error) {
	pages := t.Pages
	if pages == nil {
		pages = []models.PageSize{}
	}
	elements := t.Elements
	if elements == nil {
		elements = []models.TemplateElement{}
	}
	p, err := json.Marshal(pages)
	if err != nil {
		return "", "", fmt.Errorf("encode pages: %w", err)
	}
	e, err := json.Marshal(elements)
	if err != nil {
		return "", "", fmt.Errorf("encode elements: %w", err)
	}
	return string(p), string(e), nil
}
