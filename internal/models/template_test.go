package models

import (
	"reflect"
	"testing"
)

func sampleTemplate() *Template {
	return &Template{
		Name:  "Dragon Adventure",
		Pages: []PageSize{{Width: 1000, Height: 1400}, {Width: 1000, Height: 1400}},
		Elements: []TemplateElement{
			{ID: "title", Type: ElementTypeText, PageIndex: 0, Variable: "name"},
			{ID: "hero", Type: ElementTypeImage, PageIndex: 0, Variable: "hero"},
			{ID: "hero-again", Type: ElementTypeImage, PageIndex: 1, Variable: "hero"},
			{ID: "photo", Type: ElementTypeImage, PageIndex: 1, Variable: "photo"},
			{ID: "decor", Type: ElementTypeImage, PageIndex: 1},
		},
	}
}

func TestTemplatePageDimensions(t *testing.T) {
	tmpl := sampleTemplate()

	tests := []struct {
		name   string
		index  int
		wantOK bool
	}{
		{"first page", 0, true},
		{"last page", 1, true},
		{"negative", -1, false},
		{"past end", 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims, ok := tmpl.PageDimensions(tt.index)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (dims.Width != 1000 || dims.Height != 1400) {
				t.Errorf("dims = %+v, want 1000x1400", dims)
			}
		})
	}
	if tmpl.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", tmpl.PageCount())
	}
}

func TestTemplateElementIndex(t *testing.T) {
	tmpl := sampleTemplate()
	if got := tmpl.ElementIndex("photo"); got != 3 {
		t.Errorf("ElementIndex(photo) = %d, want 3", got)
	}
	if got := tmpl.ElementIndex("missing"); got != -1 {
		t.Errorf("ElementIndex(missing) = %d, want -1", got)
	}
}

func TestTemplateElementsOnPage(t *testing.T) {
	tmpl := sampleTemplate()
	var ids []string
	for _, el := range tmpl.ElementsOnPage(1) {
		ids = append(ids, el.ID)
	}
	want := []string{"hero-again", "photo", "decor"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ElementsOnPage(1) = %v, want %v", ids, want)
	}
}

func TestTemplateImageVariables(t *testing.T) {
	got := sampleTemplate().ImageVariables()
	want := []string{"hero", "photo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ImageVariables() = %v, want %v", got, want)
	}
}
