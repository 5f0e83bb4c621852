package assets

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testDirs creates the five storage directories under a temp root.
func testDirs(t *testing.T) Dirs {
	t.Helper()
	root := t.TempDir()
	return Dirs{
		RecentUploads:  filepath.Join(root, "temp-images"),
		TemplateAssets: filepath.Join(root, "template-images"),
		Uploads:        filepath.Join(root, "uploads"),
		Previews:       filepath.Join(root, "previews"),
		Documents:      filepath.Join(root, "pdfs"),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(t *testing.T, dirs Dirs, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	r, err := NewResolver(dirs, opts...)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("not really an image"), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestNewResolverCreatesDirs(t *testing.T) {
	dirs := testDirs(t)
	newTestResolver(t, dirs)
	for _, d := range dirs.Ordered() {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", d, err)
		}
	}
}

func TestResolveExplicitBeatsScopedScan(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	touch(t, dirs.RecentUploads, "hero-1700000000000-1.png")

	explicit := []string{"/uploads/dragon.png", "/uploads/hero-1700000000000-999.png"}
	res := r.Resolve(context.Background(), "hero", "hero-1700000000000-999.png", explicit)

	if !res.Found {
		t.Fatalf("expected match, got %+v", res)
	}
	if res.Path != "/uploads/hero-1700000000000-999.png" {
		t.Errorf("path = %q, want explicit candidate", res.Path)
	}
	if res.Strategy != StrategyExactExplicit {
		t.Errorf("strategy = %q, want %q", res.Strategy, StrategyExactExplicit)
	}
}

func TestResolveExplicitStrategies(t *testing.T) {
	r := newTestResolver(t, testDirs(t))
	ctx := context.Background()

	tests := []struct {
		name         string
		variable     string
		value        string
		explicit     []string
		wantPath     string
		wantStrategy string
	}{
		{
			name:         "exact filename",
			variable:     "hero",
			value:        "hero-1-2.png",
			explicit:     []string{"/a/photo-1-2.png", "/a/hero-1-2.png"},
			wantPath:     "/a/hero-1-2.png",
			wantStrategy: StrategyExactExplicit,
		},
		{
			name:         "base filename",
			variable:     "avatar",
			value:        "hero.png",
			explicit:     []string{"/a/hero-1700-55.png"},
			wantPath:     "/a/hero-1700-55.png",
			wantStrategy: StrategyExactExplicit,
		},
		{
			name:         "first exact match in list order",
			variable:     "hero",
			value:        "hero.png",
			explicit:     []string{"/first/hero.png", "/second/hero.png"},
			wantPath:     "/first/hero.png",
			wantStrategy: StrategyExactExplicit,
		},
		{
			name:         "prefix when nothing exact",
			variable:     "hero",
			value:        "something-else.png",
			explicit:     []string{"/a/photo-1-2.png", "/a/hero-1-2.jpg", "/a/hero-3-4.png"},
			wantPath:     "/a/hero-1-2.jpg",
			wantStrategy: StrategyPrefixExplicit,
		},
		{
			name:         "absolute url",
			variable:     "hero",
			value:        "hero-1-2.webp",
			explicit:     []string{"https://cdn.example.com/u/hero-1-2.webp?v=3"},
			wantPath:     "https://cdn.example.com/u/hero-1-2.webp?v=3",
			wantStrategy: StrategyExactExplicit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(ctx, tt.variable, tt.value, tt.explicit)
			if !res.Found {
				t.Fatalf("expected match, got %+v", res)
			}
			if res.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", res.Path, tt.wantPath)
			}
			if res.Strategy != tt.wantStrategy {
				t.Errorf("strategy = %q, want %q", res.Strategy, tt.wantStrategy)
			}
		})
	}
}

func TestResolveScopedScan(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	ctx := context.Background()

	t.Run("base filename in recent uploads", func(t *testing.T) {
		p := touch(t, dirs.RecentUploads, "photo-1700000000000-42.jpg")
		res := r.Resolve(ctx, "portrait", "photo.jpg", nil)
		if !res.Found || res.Path != p {
			t.Fatalf("got %+v, want %s", res, p)
		}
		if res.Strategy != StrategyScopedScan {
			t.Errorf("strategy = %q, want %q", res.Strategy, StrategyScopedScan)
		}
		if res.Filename != "photo-1700000000000-42.jpg" {
			t.Errorf("filename = %q", res.Filename)
		}
	})

	t.Run("prefix in recent uploads beats exhaustive scan", func(t *testing.T) {
		touch(t, dirs.TemplateAssets, "cat-1-1.png")
		p := touch(t, dirs.RecentUploads, "cat-2-2.png")
		res := r.Resolve(ctx, "cat", "unknown.png", nil)
		if !res.Found || res.Path != p {
			t.Fatalf("got %+v, want %s", res, p)
		}
	})
}

func TestResolveExhaustiveScanOrder(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	ctx := context.Background()

	touch(t, dirs.Documents, "dragon-3-3.png")
	want := touch(t, dirs.Uploads, "dragon-1-1.png")
	touch(t, dirs.Previews, "dragon-2-2.png")

	res := r.Resolve(ctx, "dragon", "nothing.png", nil)
	if !res.Found || res.Path != want {
		t.Fatalf("got %+v, want %s", res, want)
	}
	if res.Strategy != StrategyExhaustiveScan {
		t.Errorf("strategy = %q, want %q", res.Strategy, StrategyExhaustiveScan)
	}

	// Only a later directory holds the file.
	onlyPreview := touch(t, dirs.Previews, "castle.webp")
	res = r.Resolve(ctx, "background", "castle.webp", nil)
	if !res.Found || res.Path != onlyPreview {
		t.Fatalf("got %+v, want %s", res, onlyPreview)
	}
}

func TestResolveSkipsSubdirectories(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)

	if err := os.Mkdir(filepath.Join(dirs.Uploads, "hero-1-1.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	want := touch(t, dirs.Previews, "hero-2-2.png")

	res := r.Resolve(context.Background(), "hero", "hero-1-1.png", nil)
	if !res.Found || res.Path != want {
		t.Fatalf("got %+v, want %s", res, want)
	}
}

func TestResolveImageExtensionGate(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	ctx := context.Background()

	for _, ext := range []string{".txt", ".pdf", ".doc", ".exe"} {
		name := "hero-1-1" + ext
		touch(t, dirs.RecentUploads, name)
		touch(t, dirs.Documents, name)

		res := r.Resolve(ctx, "hero", name, []string{"/up/" + name})
		if res.Found {
			t.Errorf("%s: non-image returned: %+v", ext, res)
		}
	}

	for _, ext := range []string{".jpg", ".JPEG", ".Png", ".gif", ".WEBP"} {
		name := "pic" + ext
		p := touch(t, dirs.Uploads, name)
		res := r.Resolve(ctx, "pic", name, nil)
		if !res.Found || res.Path != p {
			t.Errorf("%s: expected %s, got %+v", ext, p, res)
		}
	}
}

func TestResolveNotFound(t *testing.T) {
	r := newTestResolver(t, testDirs(t))

	res := r.Resolve(context.Background(), "hero", "missing.png", nil)
	if res.Found {
		t.Fatalf("expected not found, got %+v", res)
	}
	if !strings.Contains(res.Error, "Image not found") {
		t.Errorf("error = %q, want it to contain %q", res.Error, "Image not found")
	}
	if !strings.Contains(res.Error, `"hero"`) || !strings.Contains(res.Error, `"missing.png"`) {
		t.Errorf("error = %q, want variable and value quoted", res.Error)
	}
	if res.VariableName != "hero" {
		t.Errorf("variableName = %q, want hero", res.VariableName)
	}
}

func TestResolveMissingDirectory(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)

	if err := os.RemoveAll(dirs.RecentUploads); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dirs.TemplateAssets); err != nil {
		t.Fatal(err)
	}
	want := touch(t, dirs.Uploads, "hero-1-1.png")

	res := r.Resolve(context.Background(), "hero", "x.png", nil)
	if !res.Found || res.Path != want {
		t.Fatalf("got %+v, want %s", res, want)
	}

	res = r.Resolve(context.Background(), "ghost", "ghost.png", nil)
	if res.Found {
		t.Fatalf("expected not found, got %+v", res)
	}
}

func TestResolveScanFailureFallsThrough(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)

	// Replace the recent-uploads directory with a plain file so listing it
	// fails with something other than "not exist".
	if err := os.RemoveAll(dirs.RecentUploads); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dirs.RecentUploads, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	want := touch(t, dirs.Documents, "hero-1-1.gif")

	res := r.Resolve(context.Background(), "hero", "hero-1-1.gif", nil)
	if !res.Found || res.Path != want {
		t.Fatalf("got %+v, want %s", res, want)
	}
}

func TestResolveHyphenatedVariable(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	p := touch(t, dirs.RecentUploads, "best-friend-1700000000000-7.png")

	// The suffix heuristic cuts at the first hyphen, so the base name is
	// "best.png"; the variable prefix still finds the file.
	if got := BaseFilename("best-friend-1700000000000-7.png"); got != "best.png" {
		t.Errorf("BaseFilename = %q, want best.png", got)
	}
	res := r.Resolve(context.Background(), "best-friend", "best-friend.png", nil)
	if !res.Found || res.Path != p {
		t.Fatalf("got %+v, want %s", res, p)
	}
}

func TestResolveEndToEndScenario(t *testing.T) {
	r := newTestResolver(t, testDirs(t))

	res := r.Resolve(context.Background(), "hero", "hero-1699999999999-42.png",
		[]string{"/uploads/hero-1699999999999-42.png"})
	if !res.Found {
		t.Fatalf("expected match, got %+v", res)
	}
	if res.Path != "/uploads/hero-1699999999999-42.png" {
		t.Errorf("path = %q", res.Path)
	}
	if res.Strategy != StrategyExactExplicit {
		t.Errorf("strategy = %q, want %q", res.Strategy, StrategyExactExplicit)
	}
}

// fakeMappings is an in-memory MappingStore.
type fakeMappings struct {
	paths   map[string]string
	deleted []string
	err     error
}

func (f *fakeMappings) FindPath(_ context.Context, variableName, value string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.paths[variableName+"/"+value], nil
}

func (f *fakeMappings) DeleteByPaths(_ context.Context, paths []string) (int, error) {
	f.deleted = append(f.deleted, paths...)
	return len(paths), nil
}

func TestResolveRecordedMapping(t *testing.T) {
	dirs := testDirs(t)
	if err := EnsureDirs(dirs); err != nil {
		t.Fatal(err)
	}
	mapped := touch(t, dirs.Uploads, "zz-mapped.png")
	touch(t, dirs.RecentUploads, "best-friend-1-1.png")

	m := &fakeMappings{paths: map[string]string{"best-friend/friend.png": mapped}}
	r := newTestResolver(t, dirs, WithMappings(m))
	ctx := context.Background()

	res := r.Resolve(ctx, "best-friend", "friend.png", nil)
	if !res.Found || res.Path != mapped || res.Strategy != StrategyMapping {
		t.Fatalf("got %+v, want mapping hit %s", res, mapped)
	}

	// Explicit candidates still win over the mapping.
	res = r.Resolve(ctx, "best-friend", "friend.png", []string{"/req/best-friend-9-9.png"})
	if res.Strategy != StrategyPrefixExplicit {
		t.Errorf("strategy = %q, want %q", res.Strategy, StrategyPrefixExplicit)
	}

	// A mapping to a deleted file falls through to the scans.
	if err := os.Remove(mapped); err != nil {
		t.Fatal(err)
	}
	res = r.Resolve(ctx, "best-friend", "friend.png", nil)
	if res.Strategy != StrategyScopedScan {
		t.Errorf("strategy = %q, want %q", res.Strategy, StrategyScopedScan)
	}
}

func TestResolveMappingErrorIsNotFatal(t *testing.T) {
	dirs := testDirs(t)
	if err := EnsureDirs(dirs); err != nil {
		t.Fatal(err)
	}
	want := touch(t, dirs.RecentUploads, "hero-1-1.png")
	r := newTestResolver(t, dirs, WithMappings(&fakeMappings{err: os.ErrPermission}))

	res := r.Resolve(context.Background(), "hero", "hero-1-1.png", nil)
	if !res.Found || res.Path != want {
		t.Fatalf("got %+v, want %s", res, want)
	}
}

// fakeCache is an in-memory ResultCache.
type fakeCache struct {
	entries map[string]string
	cleared int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, variableName, value string) (string, bool) {
	p, ok := c.entries[variableName+"/"+value]
	return p, ok
}

func (c *fakeCache) Set(_ context.Context, variableName, value, path string) {
	c.entries[variableName+"/"+value] = path
}

func (c *fakeCache) Clear(context.Context) {
	c.entries = make(map[string]string)
	c.cleared++
}

func TestResolveCachesScanHits(t *testing.T) {
	dirs := testDirs(t)
	cache := newFakeCache()
	r := newTestResolver(t, dirs, WithCache(cache))
	ctx := context.Background()

	p := touch(t, dirs.Previews, "moon-1-1.png")
	res := r.Resolve(ctx, "moon", "moon.png", nil)
	if res.Strategy != StrategyExhaustiveScan {
		t.Fatalf("first resolve strategy = %q", res.Strategy)
	}
	if cache.entries["moon/moon.png"] != p {
		t.Fatalf("scan hit not cached: %v", cache.entries)
	}

	res = r.Resolve(ctx, "moon", "moon.png", nil)
	if res.Strategy != StrategyCache || res.Path != p {
		t.Errorf("second resolve = %+v, want cache hit", res)
	}

	// Explicit hits are not cached.
	r.Resolve(ctx, "sun", "sun.png", []string{"/x/sun.png"})
	if _, ok := cache.entries["sun/sun.png"]; ok {
		t.Error("explicit hit should not be cached")
	}

	// A stale entry is ignored.
	cache.entries["star/star.png"] = filepath.Join(dirs.Uploads, "gone.png")
	res = r.Resolve(ctx, "star", "star.png", nil)
	if res.Found {
		t.Errorf("stale cache entry returned: %+v", res)
	}
}

func TestResolveRecentUploadBeatsCachedScan(t *testing.T) {
	dirs := testDirs(t)
	cache := newFakeCache()
	r := newTestResolver(t, dirs, WithCache(cache))
	ctx := context.Background()

	old := touch(t, dirs.Previews, "hero-1-1.png")
	res := r.Resolve(ctx, "hero", "hero.png", nil)
	if res.Strategy != StrategyExhaustiveScan || res.Path != old {
		t.Fatalf("first resolve = %+v, want exhaustive hit on %s", res, old)
	}

	fresh := touch(t, dirs.RecentUploads, "hero-2-2.png")
	res = r.Resolve(ctx, "hero", "hero.png", nil)
	if res.Strategy != StrategyScopedScan || res.Path != fresh {
		t.Errorf("after upload = %+v, want scoped-scan hit on %s", res, fresh)
	}

	uncached := newTestResolver(t, dirs)
	if want := uncached.Resolve(ctx, "hero", "hero.png", nil); want.Path != res.Path || want.Strategy != res.Strategy {
		t.Errorf("cached resolver = %+v, uncached = %+v", res, want)
	}
}

func TestResolveScopedHitsAreNotCached(t *testing.T) {
	dirs := testDirs(t)
	cache := newFakeCache()
	r := newTestResolver(t, dirs, WithCache(cache))

	touch(t, dirs.RecentUploads, "pet-1-1.png")
	if res := r.Resolve(context.Background(), "pet", "pet.png", nil); res.Strategy != StrategyScopedScan {
		t.Fatalf("strategy = %q, want %q", res.Strategy, StrategyScopedScan)
	}
	if len(cache.entries) != 0 {
		t.Errorf("scoped hit cached: %v", cache.entries)
	}
}
