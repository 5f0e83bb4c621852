// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storybook/internal/models"
)

// AssetMappingStore records which file an upload produced for a variable.
type AssetMappingStore struct {
	db *sql.DB
}

// NewAssetMappingStore creates a new AssetMappingStore.
func NewAssetMappingStore(db *sql.DB) *AssetMappingStore {
	return &AssetMappingStore{db: db}
}

// Create inserts a mapping and returns it with its generated fields.
func (s *AssetMappingStore) Create(ctx context.Context, m *models.AssetMapping) (*models.AssetMapping, error) {
	result := &models.AssetMapping{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO asset_mappings (variable_name, value, path, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, variable_name, value, path, content_type, size_bytes, created_at
	`, m.VariableName, m.Value, m.Path, m.ContentType, m.SizeBytes).Scan(
		&result.ID, &result.VariableName, &result.Value, &result.Path,
		&result.ContentType, &result.SizeBytes, &result.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create asset mapping: %w", err)
	}
	return result, nil
}

// FindPath returns the most recently recorded path for variableName/value,
// or "" if none exists.
func (s *AssetMappingStore) FindPath(ctx context.Context, variableName, value string) (string, error) {
	var p string
	err := s.db.QueryRowContext(ctx, `
		SELECT path FROM asset_mappings
		WHERE variable_name = $1 AND value = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, variableName, value).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find asset mapping: %w", err)
	}
	return p, nil
}

// ListByVariable returns all mappings for a variable, newest first.
func (s *AssetMappingStore) ListByVariable(ctx context.Context, variableName string) ([]models.AssetMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, variable_name, value, path, content_type, size_bytes, created_at
		FROM asset_mappings WHERE variable_name = $1
		ORDER BY created_at DESC
	`, variableName)
	if err != nil {
		return nil, fmt.Errorf("list asset mappings: %w", err)
	}
	defer rows.Close()

	var out []models.AssetMapping
	for rows.Next() {
		var m models.AssetMapping
		if err := rows.Scan(
			&m.ID, &m.VariableName, &m.Value, &m.Path,
			&m.ContentType, &m.SizeBytes, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan asset mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteByPaths removes mappings that point at any of paths and returns the
// number of rows removed.
func (s *AssetMappingStore) DeleteByPaths(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM asset_mappings WHERE path = ANY($1)`, paths)
	if err != nil {
		return 0, fmt.Errorf("delete asset mappings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete asset mappings rows: %w", err)
	}
	return int(n), nil
}
