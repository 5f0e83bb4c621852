// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"storybook/internal/models"
)

// DemoTemplateName is the name of the template Seed creates.
const DemoTemplateName = "The Little Explorer"

// demoPages is a two-page A4 book, in PDF points.
var demoPages = []models.PageSize{
	{Width: 595.28, Height: 841.89},
	{Width: 595.28, Height: 841.89},
}

var demoElements = []models.TemplateElement{
	{
		ID: "cover-title", Type: models.ElementTypeText, PageIndex: 0,
		X: 10, Y: 8, Width: 80, Height: 10,
		Content: "{{childName}} and the Hidden Map", FontFamily: "Helvetica",
		FontSize: 28, Bold: true, Color: "#1d3557", Align: models.AlignCenter,
	},
	{
		ID: "cover-photo", Type: models.ElementTypeImage, PageIndex: 0,
		X: 20, Y: 25, Width: 60, Height: 45, Variable: "childPhoto",
	},
	{
		ID: "page1-text", Type: models.ElementTypeText, PageIndex: 1,
		X: 10, Y: 10, Width: 80, Height: 20,
		Content: "One morning {{childName}} found a map under the bed.", FontFamily: "Times",
		FontSize: 16, Color: "#222222", Align: models.AlignLeft,
	},
	{
		ID: "page1-pet", Type: models.ElementTypeImage, PageIndex: 1,
		X: 55, Y: 55, Width: 35, Height: 30, Variable: "petPhoto",
	},
}

// Seed populates the database with initial development data.
// It creates a demo template if no templates exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM templates").Scan(&count); err != nil {
		return fmt.Errorf("seed check templates: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	pages, err := json.Marshal(demoPages)
	if err != nil {
		return fmt.Errorf("seed marshal pages: %w", err)
	}
	elements, err := json.Marshal(demoElements)
	if err != nil {
		return fmt.Errorf("seed marshal elements: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO templates (name, description, pages, elements)
		VALUES ($1, $2, $3, $4)
	`, DemoTemplateName,
		"A short **adventure** starring your child and their pet.",
		string(pages), string(elements))
	if err != nil {
		return fmt.Errorf("seed insert template: %w", err)
	}

	slog.Info("database seeded with demo template", "name", DemoTemplateName)
	return nil
}
