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

// StoryStore persists generated stories.
type StoryStore struct {
	db *sql.DB
}

// NewStoryStore creates a new StoryStore.
func NewStoryStore(db *sql.DB) *StoryStore {
	return &StoryStore{db: db}
}

const storyColumns = `id, template_id, field_values, preview_path, pdf_path, pdf_url, unresolved, created_at`

func scanStory(row rowScanner) (*models.Story, error) {
	st := &models.Story{}
	var values, unresolved []byte
	var pdfURL sql.NullString
	if err := row.Scan(
		&st.ID, &st.TemplateID, &values, &st.PreviewPath, &st.PDFPath,
		&pdfURL, &unresolved, &st.CreatedAt,
	); err != nil {
		return nil, err
	}
	if pdfURL.Valid {
		st.PDFURL = &pdfURL.String
	}
	if err := json.Unmarshal(values, &st.Values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	if err := json.Unmarshal(unresolved, &st.Unresolved); err != nil {
		return nil, fmt.Errorf("decode unresolved: %w", err)
	}
	return st, nil
}

// Create inserts a story record.
func (s *StoryStore) Create(ctx context.Context, st *models.Story) (*models.Story, error) {
	values := st.Values
	if values == nil {
		values = map[string]string{}
	}
	unresolved := st.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	v, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	u, err := json.Marshal(unresolved)
	if err != nil {
		return nil, fmt.Errorf("encode unresolved: %w", err)
	}

	id := st.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	result, err := scanStory(s.db.QueryRowContext(ctx, `
		INSERT INTO stories (id, template_id, field_values, preview_path, pdf_path, pdf_url, unresolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+storyColumns,
		id, st.TemplateID, string(v), st.PreviewPath, st.PDFPath, st.PDFURL, string(u),
	))
	if err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}
	return result, nil
}

// FindByID retrieves a story by its UUID. Returns nil if not found.
func (s *StoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	st, err := scanStory(s.db.QueryRowContext(ctx, `
		SELECT `+storyColumns+`
		FROM stories WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find story by id: %w", err)
	}
	return st, nil
}

// ListByTemplate returns the stories generated from a template, newest first.
func (s *StoryStore) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Story, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storyColumns+`
		FROM stories WHERE template_id = $1
		ORDER BY created_at DESC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var out []models.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}
