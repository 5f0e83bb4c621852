// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Most tests run against in-memory repositories and a real resolver over
// temporary directories; the database-backed tests skip when PostgreSQL is
// unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"storybook/internal/assets"
	"storybook/internal/database"
	"storybook/internal/models"
	"storybook/internal/store"
	"storybook/internal/uploads"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "storybook")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "storybook")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// memTemplates is an in-memory TemplateRepo with the same version
// semantics as store.TemplateStore.
type memTemplates struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Template
}

func newMemTemplates() *memTemplates {
	return &memTemplates{byID: make(map[uuid.UUID]models.Template)}
}

func (m *memTemplates) List(_ context.Context) ([]models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Template, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTemplates) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	t.Elements = append([]models.TemplateElement(nil), t.Elements...)
	return &t, nil
}

func (m *memTemplates) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Version = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.byID[c.ID] = c
	return &c, nil
}

func (m *memTemplates) UpdateElements(_ context.Context, id uuid.UUID, elements []models.TemplateElement, expectedVersion int) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if expectedVersion != 0 && expectedVersion != t.Version {
		return nil, store.ErrVersionConflict
	}
	t.Elements = append([]models.TemplateElement(nil), elements...)
	t.Version++
	t.UpdatedAt = time.Now()
	m.byID[id] = t
	return &t, nil
}

// memStories is an in-memory StoryRepo.
type memStories struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Story
}

func (m *memStories) Create(_ context.Context, s *models.Story) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID == nil {
		m.byID = make(map[uuid.UUID]models.Story)
	}
	c := *s
	c.CreatedAt = time.Now()
	m.byID[c.ID] = c
	return &c, nil
}

func (m *memStories) FindByID(_ context.Context, id uuid.UUID) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// fakePublisher records published files.
type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) PublishFile(_ context.Context, localPath, _ string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, localPath)
	return "https://cdn.example.com/books/" + filepath.Base(localPath), nil
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Dirs      assets.Dirs
	Templates *memTemplates
	Stories   *memStories
	Resolver  *assets.Resolver
	Publisher *fakePublisher
	API       *API
}

// newTestEnv creates an API over temporary storage directories.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	dirs := assets.Dirs{
		RecentUploads:  filepath.Join(root, "temp-images"),
		TemplateAssets: filepath.Join(root, "template-images"),
		Uploads:        filepath.Join(root, "uploads"),
		Previews:       filepath.Join(root, "previews"),
		Documents:      filepath.Join(root, "pdfs"),
	}
	resolver, err := assets.NewResolver(dirs)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	env := &testEnv{
		Dirs:      dirs,
		Templates: newMemTemplates(),
		Stories:   &memStories{},
		Resolver:  resolver,
		Publisher: &fakePublisher{},
	}
	env.API = NewAPI(Deps{
		Templates:      env.Templates,
		Stories:        env.Stories,
		Resolver:       resolver,
		Uploader:       uploads.NewSaver(dirs.RecentUploads, 1<<20, nil),
		Publisher:      env.Publisher,
		PublicBaseURL:  "http://books.test",
		MaxUploadBytes: 1 << 20,
		PurgeMaxAge:    1,
	})
	return env
}

// seedTemplate stores a two-page 1000x1400 template with a title and a
// hero image on the cover.
func (e *testEnv) seedTemplate(t *testing.T) *models.Template {
	t.Helper()
	created, err := e.Templates.Create(context.Background(), &models.Template{
		Name:        "Test Book",
		Description: "A *test* book.",
		Pages:       []models.PageSize{{Width: 1000, Height: 1400}, {Width: 1000, Height: 1400}},
		Elements: []models.TemplateElement{
			{ID: "title", Type: models.ElementTypeText, PageIndex: 0, X: 10, Y: 5, Width: 80, Height: 10, Variable: "childName", Content: "Hello"},
			{ID: "hero", Type: models.ElementTypeImage, PageIndex: 0, X: 20, Y: 30, Width: 40, Height: 30, Variable: "hero"},
			{ID: "page2", Type: models.ElementTypeText, PageIndex: 1, X: 10, Y: 10, Width: 80, Height: 20, Content: "The end, {{childName}}."},
		},
	})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return created
}

// withChiURLParams adds chi URL parameters, given as key/value pairs, to a request.
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonBody encodes v for a request body.
func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// decodeBody decodes a JSON response body into v.
func decodeBody(t *testing.T, body *bytes.Buffer, v any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", body.String(), err)
	}
}

// testPNG returns an encoded w x h PNG.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// multipartBody builds a multipart form with the given fields and an
// optional file part.
func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
